package models

import "time"

// Message is one copy of a chat message stored in a mailbox.
// Every logical message exists twice: once in the sender's mailbox
// and once in the recipient's.
type Message struct {
	ID      string    `json:"id"`
	Owner   string    `json:"-"`
	Peer    string    `json:"-"`
	Sender  string    `json:"sender"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ChatTimeDisplay formats a message timestamp for a chat list:
// a clock time within the last day, "Yesterday" within two days,
// otherwise the date.
func ChatTimeDisplay(t, now time.Time) string {
	age := now.Sub(t)
	switch {
	case age < 24*time.Hour:
		return t.Format("3:04 PM")
	case age < 48*time.Hour:
		return "Yesterday"
	default:
		return t.Format("02/01/2006")
	}
}

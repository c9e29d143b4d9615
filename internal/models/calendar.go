package models

import "time"

// DefaultEventDuration is applied when an event has no end time
const DefaultEventDuration = time.Hour

// CalendarEvent is an entry on a family's shared calendar
type CalendarEvent struct {
	ID          string    `json:"id"`
	FamilyID    string    `json:"familyId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DayBounds returns the first and last instant of the day containing t, in t's location
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// Package qrcode renders the family join code shown to members and parses
// the payload a scanner sends back.
package qrcode

import (
	"errors"
	"fmt"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

// JoinScheme prefixes every join payload
const JoinScheme = "familia://join/"

// DefaultSize is the PNG edge length in pixels
const DefaultSize = 256

var ErrInvalidPayload = errors.New("not a family join code")

// JoinPayload returns the text encoded in a family's QR code
func JoinPayload(familyID string) string {
	return JoinScheme + familyID
}

// ParseJoinPayload extracts the family ID from scanned text. A bare family
// ID is accepted as well.
func ParseJoinPayload(text string) (string, error) {
	text = strings.TrimSpace(text)
	id, found := strings.CutPrefix(text, JoinScheme)
	if !found && strings.Contains(text, "://") {
		return "", ErrInvalidPayload
	}
	if id == "" || strings.ContainsAny(id, "/ ") {
		return "", ErrInvalidPayload
	}
	return id, nil
}

// FamilyJoinPNG renders the join payload of familyID as a PNG
func FamilyJoinPNG(familyID string, size int) ([]byte, error) {
	if familyID == "" {
		return nil, ErrInvalidPayload
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := goqrcode.Encode(JoinPayload(familyID), goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

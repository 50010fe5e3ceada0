// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/progression"
)

// ErrInvalidCursor is returned for tokens that were not produced by EncodeCursor.
var ErrInvalidCursor = errors.New("invalid cursor")

// cursorToken is the keyset position of the last workout on a page.
type cursorToken struct {
	Date progression.Date `json:"d"`
	ID   string           `json:"i"`
}

// EncodeCursor returns an opaque URL-safe token for c, or "" when c is nil.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw, err := json.Marshal(cursorToken{Date: c.Date, ID: c.ID})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token from EncodeCursor. A blank token means the first page.
func DecodeCursor(token string) (*domain.Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var tok cursorToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if tok.Date.IsZero() || tok.ID == "" {
		return nil, fmt.Errorf("%w: missing position", ErrInvalidCursor)
	}
	return &domain.Cursor{Date: tok.Date, ID: tok.ID}, nil
}

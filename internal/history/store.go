// Package history records the outcome of every finished bulk upload so
// sellers can review past imports.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEntry is returned when an entry lacks a seller or session.
var ErrInvalidEntry = errors.New("history entry requires seller and session IDs")

// Entry is one finished upload.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"sessionId"`
	SellerID  string    `json:"sellerId"`
	FileName  string    `json:"fileName"`
	TotalRows int       `json:"totalRows"`
	ValidRows int       `json:"validRows"`
	Uploaded  int       `json:"uploaded"`
	Failed    int       `json:"failed"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists upload history.
type Store interface {
	// Record saves e, assigning an ID and timestamp when they are zero.
	Record(ctx context.Context, e Entry) (Entry, error)

	// List returns a seller's most recent entries, newest first.
	List(ctx context.Context, sellerID string, limit int) ([]Entry, error)

	// Purge deletes entries created before cutoff and returns how many.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// prepare validates e and fills in generated fields.
func prepare(e Entry, now time.Time) (Entry, error) {
	if e.SellerID == "" || e.SessionID == "" {
		return Entry{}, ErrInvalidEntry
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

// Package store persists export history.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("export not found")

// GenNewID generates a new UUID v7 (time-ordered).
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Record is one stored export.
type Record struct {
	ID        string          `json:"id" yaml:"id"`
	URL       string          `json:"url" yaml:"url"`
	Title     string          `json:"title" yaml:"title"`
	Count     int             `json:"count" yaml:"count"`
	Tags      []string        `json:"tags" yaml:"tags"`
	Source    string          `json:"source,omitempty" yaml:"source,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty" yaml:"-"`
	CreatedAt time.Time       `json:"createdAt" yaml:"createdAt"`
}

// Selection decodes the stored payload.
func (r Record) Selection() (protocol.Selection, error) {
	var sel protocol.Selection
	if err := json.Unmarshal(r.Payload, &sel); err != nil {
		return sel, fmt.Errorf("decode export %s: %w", r.ID, err)
	}
	return sel, nil
}

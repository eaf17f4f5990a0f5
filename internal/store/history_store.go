package store

import (
	"context"

	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// HistoryStore persists completed exports.
type HistoryStore interface {
	Save(ctx context.Context, sel protocol.Selection) (string, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit int, filter *Filter) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Prune(ctx context.Context, keep int) (int64, error)
	Close() error
}

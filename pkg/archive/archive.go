// Package archive records every ligand that was successfully scored,
// whether or not it passed admission. It is the durable "all results"
// record behind the sorted_scores_all artifact; the bounded top-K buffer
// only ever holds the best slice of it.
package archive

import (
	"context"
	"fmt"

	"github.com/molscreen/molscreen/result"
)

// Archive stores scored records keyed by item ID, keeping the best (lowest)
// score per item. Implementations must be safe for concurrent use: every
// worker appends to the same archive.
type Archive interface {
	Append(ctx context.Context, record result.Record) error
	All(ctx context.Context) ([]result.Record, error)
	Close() error
}

// Config selects and configures an archive backend.
type Config struct {
	Type       string `env:"ARCHIVE_TYPE"        envDefault:"memory"`
	BadgerPath string `env:"ARCHIVE_BADGER_PATH" envDefault:"./data/archive"`
}

// New builds the archive named by cfg.Type.
func New(cfg Config) (Archive, error) {
	switch cfg.Type {
	case "", "memory":
		return NewInMemory(), nil
	case "badger":
		return NewBadger(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}

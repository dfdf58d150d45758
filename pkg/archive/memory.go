package archive

import (
	"context"
	"sync"

	"github.com/molscreen/molscreen/pkg/errors"
	"github.com/molscreen/molscreen/result"
)

type inMemoryArchive struct {
	sync.Mutex

	scores map[string]float64
}

// NewInMemory returns an archive held entirely in process memory.
func NewInMemory() Archive {
	return &inMemoryArchive{
		scores: make(map[string]float64),
	}
}

func (a *inMemoryArchive) Append(_ context.Context, record result.Record) error {
	if record.ItemID == "" {
		return errors.ErrEmptyKey
	}

	a.Lock()
	defer a.Unlock()

	if s, ok := a.scores[record.ItemID]; !ok || record.Score < s {
		a.scores[record.ItemID] = record.Score
	}

	return nil
}

func (a *inMemoryArchive) All(_ context.Context) ([]result.Record, error) {
	a.Lock()
	defer a.Unlock()

	records := make([]result.Record, 0, len(a.scores))
	for id, score := range a.scores {
		records = append(records, result.Record{ItemID: id, Score: score})
	}
	result.Sort(records)

	return records, nil
}

func (a *inMemoryArchive) Close() error {
	return nil
}

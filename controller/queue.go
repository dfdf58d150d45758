package controller

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/molscreen/molscreen/pkg/codec"
	"github.com/molscreen/molscreen/pkg/errors"
)

// Queue is the global work queue. Only the controller ever touches it, from
// a single goroutine, so it needs no locking. Units are popped and never
// re-inserted: a unit lost inside a worker is lost for good.
type Queue struct {
	units []codec.UnitRef
}

// NewQueue wraps the enumerated unit references.
func NewQueue(units []codec.UnitRef) *Queue {
	return &Queue{units: units}
}

// Len returns the number of units still queued.
func (q *Queue) Len() int {
	return len(q.units)
}

// Pop removes and returns one unit, or ErrQueueEmpty once the queue is
// exhausted. Units come off the end of the list; dispatch order is an
// artifact of the representation and callers must not rely on it.
func (q *Queue) Pop() (codec.UnitRef, error) {
	if len(q.units) == 0 {
		return "", errors.ErrQueueEmpty
	}

	unit := q.units[len(q.units)-1]
	q.units = q.units[:len(q.units)-1]

	return unit, nil
}

// EnumerateUnits walks the ligand library once and collects every batch
// file. The queue is built exactly once per job; nothing regenerates it.
func EnumerateUnits(library string) ([]codec.UnitRef, error) {
	var units []codec.UnitRef

	err := filepath.WalkDir(library, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range codec.Extensions {
			if strings.HasSuffix(path, ext) {
				units = append(units, codec.UnitRef(path))

				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return units, nil
}

package archive

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	pkgerrors "github.com/molscreen/molscreen/pkg/errors"
	"github.com/molscreen/molscreen/result"
)

type badgerArchive struct {
	db *badger.DB
}

// NewBadger returns an archive persisted in a Badger database at path. It
// survives the job process, so an aborted run still leaves its raw scores
// on disk.
func NewBadger(path string) (Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &badgerArchive{db: db}, nil
}

func (a *badgerArchive) Append(_ context.Context, record result.Record) error {
	if record.ItemID == "" {
		return pkgerrors.ErrEmptyKey
	}

	key := []byte(record.ItemID)

	return a.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var existing result.Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			if existing.Score <= record.Score {
				return nil
			}
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}

		val, err := json.Marshal(record)
		if err != nil {
			return err
		}

		return txn.Set(key, val)
	})
}

func (a *badgerArchive) All(_ context.Context) ([]result.Record, error) {
	var records []result.Record

	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r result.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			records = append(records, r)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Sort(records)

	return records, nil
}

func (a *badgerArchive) Close() error {
	return a.db.Close()
}

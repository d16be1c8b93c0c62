// Package store persists finalized invoice records per user in a local
// BoltDB file. It is the default corpus source for batches.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"facturas/internal/logger"
	"facturas/pkg/models"
)

const (
	recordsBucket = "records"
	indexBucket   = "index"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// BoltStore keeps one nested bucket per user inside the records and index
// buckets. Records are keyed by insertion sequence so listings come back in
// the order they were saved.
type BoltStore struct {
	db  *bbolt.DB
	log zerolog.Logger
}

// Open opens or creates the database at path.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(recordsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(indexBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db, log: logger.WithComponent("store")}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveRecords appends records for a user. A record whose ID is already
// stored is overwritten in place.
func (s *BoltStore) SaveRecords(ctx context.Context, userID string, records []models.InvoiceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		recs, err := tx.Bucket([]byte(recordsBucket)).CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}
		idx, err := tx.Bucket([]byte(indexBucket)).CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}

		for _, r := range records {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshaling record %s: %w", r.ID, err)
			}

			key := idx.Get([]byte(r.ID))
			if key == nil {
				seq, err := recs.NextSequence()
				if err != nil {
					return err
				}
				key = sequenceKey(seq)
				if err := idx.Put([]byte(r.ID), key); err != nil {
					return err
				}
			}
			if err := recs.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving records: %w", err)
	}

	s.log.Debug().Str("user_id", userID).Int("records", len(records)).Msg("Records saved")
	return nil
}

// GetRecord returns one record by ID.
func (s *BoltStore) GetRecord(userID, id string) (models.InvoiceRecord, error) {
	var rec models.InvoiceRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		idx := tx.Bucket([]byte(indexBucket)).Bucket([]byte(userID))
		recs := tx.Bucket([]byte(recordsBucket)).Bucket([]byte(userID))
		if idx == nil || recs == nil {
			return ErrNotFound
		}
		key := idx.Get([]byte(id))
		if key == nil {
			return ErrNotFound
		}
		return json.Unmarshal(recs.Get(key), &rec)
	})
	if err != nil {
		return models.InvoiceRecord{}, fmt.Errorf("record %s: %w", id, err)
	}
	return rec, nil
}

// ListRecords returns a user's records in the order they were first saved.
func (s *BoltStore) ListRecords(userID string) ([]models.InvoiceRecord, error) {
	records := make([]models.InvoiceRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		recs := tx.Bucket([]byte(recordsBucket)).Bucket([]byte(userID))
		if recs == nil {
			return nil
		}
		return recs.ForEach(func(_, v []byte) error {
			var rec models.InvoiceRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListCorpus returns the duplicate-check view of a user's processed records.
// Its signature matches batch.CorpusLoader.
func (s *BoltStore) ListCorpus(ctx context.Context, userID string) ([]models.CorpusEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.ListRecords(userID)
	if err != nil {
		return nil, err
	}
	corpus := make([]models.CorpusEntry, 0, len(records))
	for _, r := range records {
		if r.Processed {
			corpus = append(corpus, r.Entry())
		}
	}
	return corpus, nil
}

func sequenceKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

package archive

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/shift-ledger/internal/errs"
)

const summaryBucketName = "shifts"

// Summary is the index row stored next to each archived report
type Summary struct {
	ID       string    `json:"id"`
	ShiftID  string    `json:"shift_id"`
	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`
	Sales    int       `json:"sales"`
	Cash     int64     `json:"cash"`
	Cashless int64     `json:"cashless"`
	Revenue  int64     `json:"revenue"`
}

// Index defines the interface for archive summary lookups
type Index interface {
	// SaveSummary stores a summary keyed by archive id
	SaveSummary(summary *Summary) error

	// GetSummary retrieves a summary by archive id
	GetSummary(id string) (*Summary, error)

	// ListSummaries returns all summaries
	ListSummaries() ([]*Summary, error)

	// Close closes the index
	Close() error
}

// BoltIndex implements the Index interface using BoltDB
type BoltIndex struct {
	db *bbolt.DB
}

// NewBoltIndex opens (or creates) the index database at path
func NewBoltIndex(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errs.IO(err, "opening boltdb")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(summaryBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.IO(err, "creating buckets")
	}

	return &BoltIndex{db: db}, nil
}

// SaveSummary saves a summary to the index
func (b *BoltIndex) SaveSummary(summary *Summary) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(summaryBucketName))
		data, err := json.Marshal(summary)
		if err != nil {
			return errs.Wrap(err, "marshaling summary")
		}
		return bucket.Put([]byte(summary.ID), data)
	})
}

// GetSummary retrieves a summary by archive id
func (b *BoltIndex) GetSummary(id string) (*Summary, error) {
	var summary *Summary
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(summaryBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return errs.NotFound("summary not found: %s", id)
		}
		return errs.Wrap(json.Unmarshal(data, &summary), "unmarshaling summary")
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ListSummaries returns all summaries ordered by archive id
func (b *BoltIndex) ListSummaries() ([]*Summary, error) {
	summaries := make([]*Summary, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(summaryBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var summary Summary
			if err := json.Unmarshal(v, &summary); err != nil {
				return errs.Wrap(err, "unmarshaling summary")
			}
			summaries = append(summaries, &summary)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// Close closes the database connection
func (b *BoltIndex) Close() error {
	return b.db.Close()
}

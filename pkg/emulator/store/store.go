// Package store persists emulator records in bbolt.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a record clashes with an existing one.
	ErrConflict = errors.New("record already exists")
)

// Bucket names.
const (
	BucketSessions    = "sessions"
	BucketPostings    = "postings"
	BucketVouchers    = "vouchers"
	BucketDepartments = "departments"
	BucketAccounts    = "accounts"
	BucketProjects    = "projects"
)

var allBuckets = []string{
	BucketSessions, BucketPostings, BucketVouchers,
	BucketDepartments, BucketAccounts, BucketProjects,
}

// Options configure a Store.
type Options struct {
	// LedgerSeries is added to column 1 of imported GBAT10 rows. Default 80000.
	LedgerSeries int
}

// Store represents the bbolt database wrapper.
type Store struct {
	db           *bolt.DB
	ledgerSeries int
}

// New creates a new Store instance and initializes buckets.
func New(dbPath string, opts Options) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	series := opts.LedgerSeries
	if series == 0 {
		series = 80000
	}

	return &Store{db: db, ledgerSeries: series}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LedgerSeries returns the voucher series offset used by GBAT10 imports.
func (s *Store) LedgerSeries() int {
	return s.ledgerSeries
}

// Get retrieves a value from the specified bucket with the given key.
func (s *Store) Get(bucketName string, key int64, value interface{}) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}

		data := b.Get(itob(key))
		if data == nil {
			return ErrNotFound
		}

		return json.Unmarshal(data, value)
	})
}

// List retrieves all values from the specified bucket in key order.
func (s *Store) List(bucketName string, filter func(data []byte) bool) ([][]byte, error) {
	var results [][]byte

	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			if filter == nil || filter(v) {
				// Copy the value since it's only valid during the transaction.
				copied := make([]byte, len(v))
				copy(copied, v)
				results = append(results, copied)
			}
			return nil
		})
	})

	return results, err
}

// PutString stores a string value with a string key.
func (s *Store) PutString(bucketName, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// GetString retrieves a string value with a string key.
func (s *Store) GetString(bucketName, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}

		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}

		value = string(data)
		return nil
	})
	return value, err
}

// DeleteString removes a value with a string key.
func (s *Store) DeleteString(bucketName, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
}

func bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("bucket %s not found", name)
	}
	return b, nil
}

// insert assigns the next sequence ID of the bucket through setID and stores value.
func insert(tx *bolt.Tx, bucketName string, value interface{}, setID func(int64)) error {
	b, err := bucket(tx, bucketName)
	if err != nil {
		return err
	}

	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	setID(int64(seq))

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return b.Put(itob(int64(seq)), data)
}

// decodeAll unmarshals every raw record into a new T.
func decodeAll[T any](results [][]byte) ([]*T, error) {
	out := make([]*T, 0, len(results))
	for _, data := range results {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// itob converts an int64 to a byte slice for use as a bbolt key.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

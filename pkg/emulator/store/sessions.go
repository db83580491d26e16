package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cybernetisk/okotools/pkg/emulator/models"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// CreateSession issues a session token valid through expirationDate (YYYY-MM-DD).
func (s *Store) CreateSession(consumerToken, employeeToken, expirationDate string) (*models.Session, error) {
	if _, err := time.Parse("2006-01-02", expirationDate); err != nil {
		return nil, fmt.Errorf("invalid expirationDate %q: %w", expirationDate, err)
	}

	session := &models.Session{
		Token:          uuid.NewString(),
		ExpirationDate: expirationDate,
		ConsumerToken:  consumerToken,
		EmployeeToken:  employeeToken,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, BucketSessions)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		session.ID = int64(seq)
		return b.Put([]byte(session.Token), []byte(expirationDate))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

// ValidateSession reports whether token is a live session at now.
func (s *Store) ValidateSession(token string, now time.Time) (bool, error) {
	expirationDate, err := s.GetString(BucketSessions, token)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get session: %w", err)
	}

	expires, err := time.ParseInLocation("2006-01-02", expirationDate, now.Location())
	if err != nil {
		return false, fmt.Errorf("failed to parse expiration date: %w", err)
	}

	// Valid through the whole expiration day.
	if !now.Before(expires.AddDate(0, 0, 1)) {
		_ = s.DeleteString(BucketSessions, token)
		return false, nil
	}

	return true, nil
}

// Seed loads reference data and vouchers.
func (s *Store) Seed(data models.SeedData) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for i := range data.Accounts {
			a := &data.Accounts[i]
			if err := insert(tx, BucketAccounts, a, func(id int64) { a.ID = id }); err != nil {
				return err
			}
		}
		for i := range data.Departments {
			d := &data.Departments[i]
			if err := insert(tx, BucketDepartments, d, func(id int64) { d.ID = id }); err != nil {
				return err
			}
		}
		for i := range data.Projects {
			p := &data.Projects[i]
			if err := insert(tx, BucketProjects, p, func(id int64) { p.ID = id }); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	vouchers := make([]*models.Voucher, len(data.Vouchers))
	for i := range data.Vouchers {
		vouchers[i] = &data.Vouchers[i]
	}
	if _, err := s.CreateVouchers(vouchers); err != nil {
		return fmt.Errorf("failed to seed vouchers: %w", err)
	}
	return nil
}

// SeedFile loads seed data from a JSON file.
func (s *Store) SeedFile(data []byte) error {
	var seed models.SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}
	return s.Seed(seed)
}

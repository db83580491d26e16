package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cybernetisk/okotools/pkg/emulator/models"
	bolt "go.etcd.io/bbolt"
)

// PostingFilter selects postings. DateTo is exclusive; zero values are open.
type PostingFilter struct {
	DateFrom    string
	DateTo      string
	AccountFrom int
	AccountTo   int
}

func (f PostingFilter) match(p *models.Posting) bool {
	if f.DateFrom != "" && p.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && p.Date >= f.DateTo {
		return false
	}
	if p.Account == nil {
		return false
	}
	if f.AccountFrom != 0 && p.Account.Number < f.AccountFrom {
		return false
	}
	if f.AccountTo != 0 && p.Account.Number > f.AccountTo {
		return false
	}
	return true
}

// CreateVouchers stores vouchers and their postings in one transaction.
// Vouchers without a number get the next free number of their year. A number
// already used in the same year fails the whole batch with ErrConflict.
func (s *Store) CreateVouchers(vouchers []*models.Voucher) ([]*models.Voucher, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		used, err := usedNumbers(tx)
		if err != nil {
			return err
		}

		for _, v := range vouchers {
			if len(v.Date) < 4 {
				return fmt.Errorf("voucher %d: invalid date %q", v.Number, v.Date)
			}
			if v.Year == 0 {
				if v.Year, err = strconv.Atoi(v.Date[:4]); err != nil {
					return fmt.Errorf("voucher %d: invalid date %q", v.Number, v.Date)
				}
			}

			if v.Number == 0 {
				v.Number = maxNumber(used[v.Year]) + 1
			}
			if used[v.Year] == nil {
				used[v.Year] = make(map[int]bool)
			}
			if used[v.Year][v.Number] {
				return fmt.Errorf("voucher %d/%d: %w", v.Number, v.Year, ErrConflict)
			}
			used[v.Year][v.Number] = true

			if err := insert(tx, BucketVouchers, v, func(id int64) { v.ID = id }); err != nil {
				return err
			}

			for i := range v.Postings {
				p := &v.Postings[i]
				p.Row = i + 1
				if p.Date == "" {
					p.Date = v.Date
				}
				p.Voucher = &models.VoucherRef{ID: v.ID, Number: v.Number, Year: v.Year}
				if err := insert(tx, BucketPostings, p, func(id int64) { p.ID = id }); err != nil {
					return err
				}
			}

			// rewrite with posting IDs filled in
			b, _ := bucket(tx, BucketVouchers)
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if err := b.Put(itob(v.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vouchers, nil
}

func usedNumbers(tx *bolt.Tx) (map[int]map[int]bool, error) {
	b, err := bucket(tx, BucketVouchers)
	if err != nil {
		return nil, err
	}

	used := make(map[int]map[int]bool)
	err = b.ForEach(func(_, data []byte) error {
		var v models.Voucher
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if used[v.Year] == nil {
			used[v.Year] = make(map[int]bool)
		}
		used[v.Year][v.Number] = true
		return nil
	})
	return used, err
}

func maxNumber(numbers map[int]bool) int {
	highest := 0
	for n := range numbers {
		if n > highest {
			highest = n
		}
	}
	return highest
}

// ListVouchers returns vouchers dated in [dateFrom, dateTo).
func (s *Store) ListVouchers(dateFrom, dateTo string) ([]*models.Voucher, error) {
	results, err := s.List(BucketVouchers, func(data []byte) bool {
		var v models.Voucher
		if err := json.Unmarshal(data, &v); err != nil {
			return false
		}
		return (dateFrom == "" || v.Date >= dateFrom) && (dateTo == "" || v.Date < dateTo)
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Voucher](results)
}

// ListPostings returns postings matching f.
func (s *Store) ListPostings(f PostingFilter) ([]*models.Posting, error) {
	results, err := s.List(BucketPostings, func(data []byte) bool {
		var p models.Posting
		if err := json.Unmarshal(data, &p); err != nil {
			return false
		}
		return f.match(&p)
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Posting](results)
}

// ListAccounts returns the chart of accounts.
func (s *Store) ListAccounts() ([]*models.Account, error) {
	results, err := s.List(BucketAccounts, nil)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Account](results)
}

// ListDepartments returns all departments.
func (s *Store) ListDepartments() ([]*models.Department, error) {
	results, err := s.List(BucketDepartments, nil)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Department](results)
}

// ListProjects returns all projects.
func (s *Store) ListProjects() ([]*models.Project, error) {
	results, err := s.List(BucketProjects, nil)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Project](results)
}

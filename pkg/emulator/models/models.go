// Package models holds the records served by the accounting API emulator.
package models

import "github.com/shopspring/decimal"

// Session is a session token created from consumer and employee tokens.
type Session struct {
	ID             int64  `json:"id"`
	Token          string `json:"token"`
	ExpirationDate string `json:"expirationDate"`
	ConsumerToken  string `json:"-"`
	EmployeeToken  string `json:"-"`
}

// Account represents an entry in the chart of accounts.
type Account struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
}

// Department represents a cost centre.
type Department struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	DepartmentNumber string `json:"departmentNumber"`
}

// Project represents a project.
type Project struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Number    string `json:"number"`
	StartDate string `json:"startDate,omitempty"`
}

// AccountRef is the account embedded in a posting.
type AccountRef struct {
	ID     int64  `json:"id,omitempty"`
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// DepartmentRef is the department embedded in a posting.
type DepartmentRef struct {
	ID               int64  `json:"id,omitempty"`
	Name             string `json:"name"`
	DepartmentNumber string `json:"departmentNumber"`
}

// ProjectRef is the project embedded in a posting.
type ProjectRef struct {
	ID     int64  `json:"id,omitempty"`
	Number string `json:"number"`
	Name   string `json:"name"`
}

// VoucherRef is the voucher embedded in a posting.
type VoucherRef struct {
	ID     int64 `json:"id,omitempty"`
	Number int   `json:"number"`
	Year   int   `json:"year"`
}

// Posting represents one ledger line.
type Posting struct {
	ID          int64           `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Row         int             `json:"row"`
	Account     *AccountRef     `json:"account"`
	Department  *DepartmentRef  `json:"department,omitempty"`
	Project     *ProjectRef     `json:"project,omitempty"`
	Voucher     *VoucherRef     `json:"voucher,omitempty"`
}

// Voucher represents a journal entry and its postings.
type Voucher struct {
	ID          int64     `json:"id"`
	Number      int       `json:"number"`
	Year        int       `json:"year"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Postings    []Posting `json:"postings,omitempty"`
}

// SeedData is loaded into an empty store for development and tests.
type SeedData struct {
	Accounts    []Account    `json:"accounts"`
	Departments []Department `json:"departments"`
	Projects    []Project    `json:"projects"`
	Vouchers    []Voucher    `json:"vouchers"`
}

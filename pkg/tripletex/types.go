// Package tripletex provides a client for the Tripletex accounting API (v2).
package tripletex

import "github.com/shopspring/decimal"

// ListResponse is the envelope of every paginated list endpoint.
type ListResponse[T any] struct {
	FullResultSize int `json:"fullResultSize"`
	From           int `json:"from"`
	Count          int `json:"count"`
	Values         []T `json:"values"`
}

// ValueResponse is the envelope of single-object endpoints.
type ValueResponse[T any] struct {
	Value T `json:"value"`
}

// SessionToken is returned by /token/session/:create.
type SessionToken struct {
	ID             int64  `json:"id"`
	Token          string `json:"token"`
	ExpirationDate string `json:"expirationDate"` // YYYY-MM-DD
}

// Account is an entry in the chart of accounts.
type Account struct {
	ID          int64  `json:"id"`
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	IsInactive  bool   `json:"isInactive,omitempty"`
}

// Department is a cost centre.
type Department struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	DepartmentNumber string `json:"departmentNumber"`
	DisplayName      string `json:"displayName,omitempty"`
	IsInactive       bool   `json:"isInactive,omitempty"`
}

// MainProject references the parent of a sub project.
type MainProject struct {
	ID     int64  `json:"id"`
	Number string `json:"number,omitempty"`
}

// Project is a project or sub project.
type Project struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Number      string       `json:"number,omitempty"`
	DisplayName string       `json:"displayName,omitempty"`
	StartDate   string       `json:"startDate,omitempty"`
	EndDate     string       `json:"endDate,omitempty"`
	MainProject *MainProject `json:"mainProject,omitempty"`
}

// PostingAccount is the account reference nested in a posting.
type PostingAccount struct {
	ID     int64  `json:"id,omitempty"`
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// PostingDepartment is the department reference nested in a posting.
type PostingDepartment struct {
	ID               int64  `json:"id,omitempty"`
	Name             string `json:"name"`
	DepartmentNumber string `json:"departmentNumber,omitempty"`
}

// PostingProject is the project reference nested in a posting.
type PostingProject struct {
	ID     int64  `json:"id,omitempty"`
	Number string `json:"number,omitempty"`
	Name   string `json:"name"`
}

// PostingVoucher is the voucher reference nested in a posting.
type PostingVoucher struct {
	ID          int64  `json:"id,omitempty"`
	Number      int    `json:"number"`
	Year        int    `json:"year"`
	Description string `json:"description,omitempty"`
}

// Posting is one ledger line.
type Posting struct {
	ID          int64              `json:"id"`
	Date        string             `json:"date"` // YYYY-MM-DD
	Description string             `json:"description,omitempty"`
	Amount      decimal.Decimal    `json:"amount"`
	AmountGross decimal.Decimal    `json:"amountGross,omitempty"`
	Row         int                `json:"row,omitempty"`
	Account     *PostingAccount    `json:"account"`
	Department  *PostingDepartment `json:"department,omitempty"`
	Project     *PostingProject    `json:"project,omitempty"`
	Voucher     *PostingVoucher    `json:"voucher,omitempty"`
}

// Voucher is a journal entry.
type Voucher struct {
	ID          int64     `json:"id,omitempty"`
	Number      int       `json:"number,omitempty"`
	Year        int       `json:"year,omitempty"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Description string    `json:"description"`
	Postings    []Posting `json:"postings,omitempty"`
}

// ValidationMessage is a field level complaint in an error response.
type ValidationMessage struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Status             int                 `json:"status"`
	Code               int                 `json:"code,omitempty"`
	Message            string              `json:"message"`
	DeveloperMessage   string              `json:"developerMessage,omitempty"`
	ValidationMessages []ValidationMessage `json:"validationMessages,omitempty"`
}

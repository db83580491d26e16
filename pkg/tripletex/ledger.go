package tripletex

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cybernetisk/okotools/pkg/ledger"
)

// PostingQuery filters the posting listing. DateTo is exclusive. Zero
// account bounds are left out of the query.
type PostingQuery struct {
	DateFrom    time.Time
	DateTo      time.Time
	AccountFrom int
	AccountTo   int
}

func (q PostingQuery) values() url.Values {
	v := url.Values{}
	v.Set("dateFrom", q.DateFrom.Format("2006-01-02"))
	v.Set("dateTo", q.DateTo.Format("2006-01-02"))
	if q.AccountFrom != 0 {
		v.Set("accountNumberFrom", strconv.Itoa(q.AccountFrom))
	}
	if q.AccountTo != 0 {
		v.Set("accountNumberTo", strconv.Itoa(q.AccountTo))
	}
	v.Set("fields", "id,date,description,amount,account(number,name),department(name,departmentNumber),project(number,name),voucher(number,year)")
	return v
}

// listAll fetches every page of a list endpoint. Each page is retried on its
// own; a short page ends the listing.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var all []T

	for page := 0; page < c.maxPages; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		from := page * c.pageSize
		q.Set("from", strconv.Itoa(from))
		q.Set("count", strconv.Itoa(c.pageSize))

		var resp ListResponse[T]
		if err := c.get(ctx, path, q, &resp); err != nil {
			return nil, fmt.Errorf("failed to list %s (from=%d): %w", path, from, err)
		}

		all = append(all, resp.Values...)

		if len(resp.Values) < c.pageSize {
			return all, nil
		}
	}

	return nil, fmt.Errorf("%s: %w (%d pages of %d)", path, ErrTooManyPages, c.maxPages, c.pageSize)
}

// ListPostingsRaw returns the API postings matching q.
func (c *Client) ListPostingsRaw(ctx context.Context, q PostingQuery) ([]Posting, error) {
	return listAll[Posting](ctx, c, "/ledger/posting", q.values())
}

// ListPostings returns the postings matching q as ledger postings.
func (c *Client) ListPostings(ctx context.Context, q PostingQuery) ([]ledger.Posting, error) {
	raw, err := c.ListPostingsRaw(ctx, q)
	if err != nil {
		return nil, err
	}

	postings := make([]ledger.Posting, 0, len(raw))
	for _, p := range raw {
		lp, err := p.ToLedger()
		if err != nil {
			return nil, err
		}
		postings = append(postings, lp)
	}

	slog.Info("fetched postings", "count", len(postings),
		"from", q.DateFrom.Format("2006-01-02"), "to", q.DateTo.Format("2006-01-02"))
	return postings, nil
}

// ToLedger converts an API posting to the ledger model.
func (p Posting) ToLedger() (ledger.Posting, error) {
	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return ledger.Posting{}, fmt.Errorf("posting %d: invalid date %q: %w", p.ID, p.Date, err)
	}
	if p.Account == nil {
		return ledger.Posting{}, fmt.Errorf("posting %d: missing account", p.ID)
	}

	lp := ledger.Posting{
		Date:          date,
		Amount:        p.Amount,
		AccountNumber: p.Account.Number,
		AccountName:   p.Account.Name,
		Description:   p.Description,
	}
	if p.Department != nil {
		lp.DepartmentNumber = optionalNumber(p.Department.DepartmentNumber)
		lp.DepartmentName = p.Department.Name
	}
	if p.Project != nil {
		lp.ProjectNumber = optionalNumber(p.Project.Number)
		lp.ProjectName = p.Project.Name
	}
	if p.Voucher != nil {
		lp.VoucherNumber = p.Voucher.Number
		lp.VoucherYear = p.Voucher.Year
	}
	return lp, nil
}

func optionalNumber(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// ListDepartments returns all departments.
func (c *Client) ListDepartments(ctx context.Context) ([]Department, error) {
	return listAll[Department](ctx, c, "/department", url.Values{"fields": {"id,name,departmentNumber,displayName,isInactive"}})
}

// ListAccounts returns the chart of accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	return listAll[Account](ctx, c, "/ledger/account", url.Values{"fields": {"id,number,name,description,type,isInactive"}})
}

// ListProjects returns all projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	return listAll[Project](ctx, c, "/project", url.Values{"fields": {"id,name,number,displayName,startDate,endDate,mainProject(id,number)"}})
}

// SeriesSpan is the size of one voucher number series.
const SeriesSpan = 10000

// NextVoucherNumber returns the next free voucher number of the year within
// the series starting at series, i.e. the highest used number in
// [series, series+SeriesSpan) plus one.
func (c *Client) NextVoucherNumber(ctx context.Context, year, series int) (int, error) {
	query := url.Values{}
	query.Set("dateFrom", fmt.Sprintf("%04d-01-01", year))
	query.Set("dateTo", fmt.Sprintf("%04d-01-01", year+1))
	query.Set("fields", "id,number,year")

	vouchers, err := listAll[Voucher](ctx, c, "/ledger/voucher", query)
	if err != nil {
		return 0, err
	}

	next := series + 1
	for _, v := range vouchers {
		if v.Number >= series && v.Number < series+SeriesSpan && v.Number >= next {
			next = v.Number + 1
		}
	}
	return next, nil
}

// ImportGBAT10 uploads a GBAT10 voucher file. The upload is not idempotent
// and is never retried.
func (c *Client) ImportGBAT10(ctx context.Context, data []byte, encoding string) ([]Voucher, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "bilag.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if encoding != "" {
		if err := mw.WriteField("encoding", encoding); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if err := mw.WriteField("generateVatPostings", "true"); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var resp ListResponse[Voucher]
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/ledger/voucher/importGbat10",
		body:        &body,
		contentType: mw.FormDataContentType(),
	}, &resp)
	if err != nil {
		return nil, err
	}

	slog.Info("imported GBAT10 vouchers", "count", len(resp.Values), "bytes", len(data))
	return resp.Values, nil
}

// CreateVoucher posts a single voucher. Not retried.
func (c *Client) CreateVoucher(ctx context.Context, v Voucher) (*Voucher, error) {
	var resp ValueResponse[Voucher]
	if err := c.postJSON(ctx, "/ledger/voucher", v, &resp); err != nil {
		return nil, err
	}
	return &resp.Value, nil
}

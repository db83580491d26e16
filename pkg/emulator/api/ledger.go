package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cybernetisk/okotools/pkg/emulator/models"
	"github.com/cybernetisk/okotools/pkg/emulator/store"
	"golang.org/x/text/encoding/charmap"
)

const (
	defaultCount = 1000
	maxUpload    = 10 << 20
)

// LedgerHandler handles posting, voucher and reference list endpoints.
type LedgerHandler struct {
	store *store.Store
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(s *store.Store) *LedgerHandler {
	return &LedgerHandler{store: s}
}

// paginate writes the from/count window of items as a list response.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T) {
	q := r.URL.Query()

	from, err := intParam(q.Get("from"), 0)
	if err != nil || from < 0 {
		writeJSONError(w, http.StatusBadRequest, "Invalid from")
		return
	}
	count, err := intParam(q.Get("count"), defaultCount)
	if err != nil || count < 0 {
		writeJSONError(w, http.StatusBadRequest, "Invalid count")
		return
	}

	page := []T{}
	if from < len(items) {
		end := min(from+count, len(items))
		page = items[from:end]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fullResultSize": len(items),
		"from":           from,
		"count":          len(page),
		"values":         page,
	})
}

func intParam(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

// ListPostings handles GET /ledger/posting.
func (h *LedgerHandler) ListPostings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PostingFilter{
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	}
	if filter.DateFrom == "" || filter.DateTo == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "dateFrom and dateTo are required")
		return
	}

	var err error
	if filter.AccountFrom, err = intParam(q.Get("accountNumberFrom"), 0); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid accountNumberFrom")
		return
	}
	if filter.AccountTo, err = intParam(q.Get("accountNumberTo"), 0); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid accountNumberTo")
		return
	}

	postings, err := h.store.ListPostings(filter)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list postings")
		return
	}

	paginate(w, r, postings)
}

// ListVouchers handles GET /ledger/voucher.
func (h *LedgerHandler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("dateFrom") == "" || q.Get("dateTo") == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "dateFrom and dateTo are required")
		return
	}

	vouchers, err := h.store.ListVouchers(q.Get("dateFrom"), q.Get("dateTo"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list vouchers")
		return
	}

	paginate(w, r, vouchers)
}

// CreateVoucher handles POST /ledger/voucher.
func (h *LedgerHandler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var v models.Voucher
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	if v.Date == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "Missing date")
		return
	}
	if len(v.Postings) == 0 {
		writeJSONError(w, http.StatusUnprocessableEntity, "Missing postings")
		return
	}

	created, err := h.store.CreateVouchers([]*models.Voucher{&v})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"value": created[0],
	})
}

// ImportGBAT10 handles POST /ledger/voucher/importGbat10.
func (h *LedgerHandler) ImportGBAT10(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	data, err := decodeUpload(raw, r.FormValue("encoding"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	vouchers, err := h.store.ImportGBAT10(data)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("imported GBAT10 file", "vouchers", len(vouchers), "bytes", len(raw))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"fullResultSize": len(vouchers),
		"from":           0,
		"count":          len(vouchers),
		"values":         vouchers,
	})
}

func decodeUpload(raw []byte, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return string(raw), nil
	case "iso-8859-1", "latin1", "latin-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		return string(out), err
	case "windows-1252", "cp1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		return string(out), err
	}
	return "", errors.New("Unsupported encoding " + encoding)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrConflict):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrUnbalanced), errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

// ListAccounts handles GET /ledger/account.
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	paginate(w, r, accounts)
}

// ListDepartments handles GET /department.
func (h *LedgerHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.store.ListDepartments()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list departments")
		return
	}
	paginate(w, r, departments)
}

// ListProjects handles GET /project.
func (h *LedgerHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}
	paginate(w, r, projects)
}

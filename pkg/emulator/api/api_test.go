package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cybernetisk/okotools/pkg/emulator/models"
	"github.com/cybernetisk/okotools/pkg/emulator/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

type testServer struct {
	server *httptest.Server
	store  *store.Store
	token  string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "api.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Seed(models.SeedData{
		Accounts: []models.Account{
			{Number: 1920, Name: "Bank"},
			{Number: 3000, Name: "Salgsinntekt"},
		},
		Departments: []models.Department{{Name: "Escape", DepartmentNumber: "1"}},
	}))

	srv := httptest.NewServer(NewRouter(st))
	t.Cleanup(srv.Close)

	ts := &testServer{server: srv, store: st}

	req, err := http.NewRequest(http.MethodPut,
		srv.URL+"/v2/token/session/:create?consumerToken=c&employeeToken=e&expirationDate=2099-12-31", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Value models.Session `json:"value"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Value.Token)
	assert.Equal(t, "2099-12-31", body.Value.ExpirationDate)
	ts.token = body.Value.Token

	return ts
}

func (ts *testServer) do(t *testing.T, method, path, contentType string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, ts.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.SetBasicAuth("0", ts.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type listBody struct {
	FullResultSize int               `json:"fullResultSize"`
	From           int               `json:"from"`
	Count          int               `json:"count"`
	Values         []json.RawMessage `json:"values"`
}

func decodeList(t *testing.T, resp *http.Response) listBody {
	t.Helper()
	var body listBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestAuthRequired(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.server.URL + "/v2/ledger/account")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, http.StatusUnauthorized, errResp.Status)

	req, _ := http.NewRequest(http.MethodGet, ts.server.URL+"/v2/ledger/account", nil)
	req.SetBasicAuth("0", "not-a-token")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestSessionCreateValidation(t *testing.T) {
	ts := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.server.URL+"/v2/token/session/:create?consumerToken=c", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodPut, ts.server.URL+"/v2/token/session/:delete", nil)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestListPagination(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/v2/ledger/account?from=1&count=5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeList(t, resp)
	assert.Equal(t, 2, body.FullResultSize)
	assert.Equal(t, 1, body.From)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Values, 1)

	var account models.Account
	require.NoError(t, json.Unmarshal(body.Values[0], &account))
	assert.Equal(t, 3000, account.Number)

	resp = ts.do(t, http.MethodGet, "/v2/department?from=10", "", nil)
	body = decodeList(t, resp)
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Values)

	resp = ts.do(t, http.MethodGet, "/v2/project?count=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateVoucherAndListPostings(t *testing.T) {
	ts := setupTestServer(t)

	voucher := models.Voucher{
		Date:        "2024-03-05",
		Description: "Kontantsalg",
		Postings: []models.Posting{
			{Amount: decimal.RequireFromString("125.50"), Account: &models.AccountRef{Number: 1920}},
			{Amount: decimal.RequireFromString("-125.50"), Account: &models.AccountRef{Number: 3000}},
		},
	}
	payload, err := json.Marshal(voucher)
	require.NoError(t, err)

	resp := ts.do(t, http.MethodPost, "/v2/ledger/voucher", "application/json", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Value models.Voucher `json:"value"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, 1, created.Value.Number)
	assert.Equal(t, 2024, created.Value.Year)

	resp = ts.do(t, http.MethodGet, "/v2/ledger/posting?dateFrom=2024-03-01&dateTo=2024-04-01&accountNumberFrom=3000", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeList(t, resp)
	require.Equal(t, 1, body.Count)

	var posting models.Posting
	require.NoError(t, json.Unmarshal(body.Values[0], &posting))
	assert.True(t, decimal.RequireFromString("-125.50").Equal(posting.Amount))
	assert.Equal(t, 3000, posting.Account.Number)

	resp = ts.do(t, http.MethodGet, "/v2/ledger/posting", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/v2/ledger/voucher", "application/json", []byte(`{"date":""}`))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func gbatFile(number, desc string, amount string) string {
	row := func(account, value string) string {
		f := make([]string, 29)
		f[0], f[1], f[2], f[3], f[4], f[5] = "GBAT10", number, "20240305", "6", "03", "2024"
		f[6], f[7], f[8] = account, "0", value
		f[20], f[21], f[23], f[24], f[26], f[27] = desc, desc, "0", "1", "T", value
		return strings.Join(f, ";") + "\r\n"
	}
	return row("3000", "-"+amount) + row("1920", amount)
}

func multipartBody(t *testing.T, data []byte, encoding string) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "bilag.csv")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("encoding", encoding))
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestImportGBAT10(t *testing.T) {
	ts := setupTestServer(t)

	latin1, err := charmap.ISO8859_1.NewEncoder().String(gbatFile("7", "Z7 Bar Å", "40.00"))
	require.NoError(t, err)

	body, contentType := multipartBody(t, []byte(latin1), "ISO-8859-1")
	resp := ts.do(t, http.MethodPost, "/v2/ledger/voucher/importGbat10", contentType, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	list := decodeList(t, resp)
	require.Equal(t, 1, list.Count)
	var v models.Voucher
	require.NoError(t, json.Unmarshal(list.Values[0], &v))
	assert.Equal(t, 80007, v.Number)
	assert.Equal(t, "Z7 Bar Å", v.Description)

	// same voucher number again
	resp = ts.do(t, http.MethodPost, "/v2/ledger/voucher/importGbat10", contentType, body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body, contentType = multipartBody(t, []byte(gbatFile("8", "Z8", "1.00")), "ebcdic")
	resp = ts.do(t, http.MethodPost, "/v2/ledger/voucher/importGbat10", contentType, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

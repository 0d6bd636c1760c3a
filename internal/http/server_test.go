package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carteira/internal/core"
	"carteira/internal/export"
	"carteira/internal/report"
	"carteira/internal/services"
	"carteira/internal/store"
	"carteira/internal/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	mem := memory.New()
	clock := func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	srv := NewServer(cfg, Services{
		Transactions: services.NewTransactionService(mem, mem, nil, nil),
		Categories:   services.NewCategoryService(mem, nil),
		Reports:      services.NewReportService(mem, time.UTC, nil, services.WithReportClock(clock)),
	}, nil)
	t.Cleanup(func() {
		if srv.limiter != nil {
			srv.limiter.stop()
		}
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func signToken(t *testing.T, method jwt.SigningMethod, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"42,50","category_id":"expense-1","description":"mercado","date":"2024-03-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, core.Amount("42.50"), created.Amount)
	require.NotNil(t, created.Category)
	assert.Equal(t, "Alimentação", created.Category.Name)

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+created.ID, `{"amount":"50.00","description":"feira"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "feira", updated.Description)
	assert.Equal(t, core.Amount("50.00"), updated.Amount)

	rr = do(t, srv, http.MethodGet, "/api/transactions?start=2024-03-01&end=2024-03-31&type=expense", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListTransactions_EmptyIsArray(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodGet, "/api/transactions", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestCreateTransaction_ValidationErrors(t *testing.T) {
	srv := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"bad amount", `{"type":"expense","amount":"abc","date":"2024-03-10"}`},
		{"zero amount", `{"type":"expense","amount":"0","date":"2024-03-10"}`},
		{"bad type", `{"type":"gift","amount":"10","date":"2024-03-10"}`},
		{"missing date", `{"type":"expense","amount":"10"}`},
		{"unknown category", `{"type":"expense","amount":"10","date":"2024-03-10","category_id":"nope"}`},
		{"type mismatch", `{"type":"income","amount":"10","date":"2024-03-10","category_id":"expense-1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Contains(t, rr.Body.String(), `"error"`)
		})
	}
}

func TestListTransactions_BadQuery(t *testing.T) {
	srv := newTestServer(t, Config{})

	for _, q := range []string{
		"start=2024-13-01",
		"type=gift",
		"min_amount=-1",
		"limit=abc",
		"range=decade",
		"start=2024-03-31&end=2024-03-01",
	} {
		rr := do(t, srv, http.MethodGet, "/api/transactions?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodGet, "/api/categories?type=income", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cats []core.Category
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	require.NotEmpty(t, cats)
	for _, c := range cats {
		assert.Equal(t, core.Income, c.Type)
	}

	rr = do(t, srv, http.MethodPost, "/api/categories", `{"name":"  Pets ","icon":"🐶","type":"expense"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.Category
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Pets", created.Name)
	assert.False(t, created.IsDefault)

	rr = do(t, srv, http.MethodPut, "/api/categories/"+created.ID, `{"name":"Animais"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/categories/expense-1", `{"name":"Comida"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/categories/expense-1", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/categories/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/categories?type=gift", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func seed(t *testing.T, srv *Server) {
	t.Helper()
	for _, body := range []string{
		`{"type":"income","amount":"5000","category_id":"income-1","description":"salário","date":"2024-03-05"}`,
		`{"type":"expense","amount":"1200.50","category_id":"expense-1","description":"mercado","date":"2024-03-07"}`,
		`{"type":"expense","amount":"300","description":"diversos","date":"2024-03-20"}`,
		`{"type":"expense","amount":"99","category_id":"expense-2","description":"fora","date":"2024-02-28"}`,
	} {
		rr := do(t, srv, http.MethodPost, "/api/transactions", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func TestReports(t *testing.T) {
	srv := newTestServer(t, Config{})
	seed(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/reports/summary?range=month", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"startDate":"2024-03-01","endDate":"2024-03-31","totalIncome":5000.00,"totalExpenses":1500.50,"balance":3499.50}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/reports/summary", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/reports/categories?start=2024-03-01&end=2024-03-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rollups []core.CategoryRollup
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rollups))
	require.Len(t, rollups, 3)
	assert.True(t, rollups[len(rollups)-1].Uncategorized())

	rr = do(t, srv, http.MethodGet, "/api/reports/categories?range=month&type=expense&top=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rollups))
	require.Len(t, rollups, 1)
	assert.Equal(t, "expense-1", rollups[0].CategoryID)

	rr = do(t, srv, http.MethodGet, "/api/reports/categories?range=month&top=1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/reports/monthly?months=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var points []core.MonthPoint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &points))
	require.Len(t, points, 2)
	assert.Equal(t, "fev/24", points[0].Label)
	assert.Equal(t, int64(-9900), points[0].Balance.Cents)
	assert.Equal(t, "mar/24", points[1].Label)
	assert.Equal(t, int64(349950-9900), points[1].Cumulative.Cents)

	rr = do(t, srv, http.MethodGet, "/api/reports/monthly?months=0", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExports(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodGet, "/api/export/transactions", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	seed(t, srv)

	rr = do(t, srv, http.MethodGet, "/api/export/transactions?range=month", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, export.ContentType, rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="transacoes_2024-03-15.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, 4, strings.Count(rr.Body.String(), "\n"))

	rr = do(t, srv, http.MethodGet, "/api/export/summary?start=2024-03-01&end=2024-03-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "resumo_financeiro_2024-03-15.csv")
	assert.Contains(t, rr.Body.String(), "3499,50")

	rr = do(t, srv, http.MethodGet, "/api/export/categories?range=month&type=expense", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "categorias_expense_2024-03-15.csv")

	rr = do(t, srv, http.MethodGet, "/api/export/categories?range=month&type=gift", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, Config{JWTSecret: testSecret})

	rr := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/categories", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	wrongKey := signToken(t, jwt.SigningMethodHS256, "other-secret", "user-1")
	rr = do(t, srv, http.MethodGet, "/api/categories", "", "Authorization", "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	wrongAlg := signToken(t, jwt.SigningMethodHS384, testSecret, "user-1")
	rr = do(t, srv, http.MethodGet, "/api/categories", "", "Authorization", "Bearer "+wrongAlg)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	noSubject := signToken(t, jwt.SigningMethodHS256, testSecret, "")
	rr = do(t, srv, http.MethodGet, "/api/categories", "", "Authorization", "Bearer "+noSubject)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	alice := "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, "alice")
	bob := "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, "bob")

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"10","description":"café","date":"2024-03-10"}`, "Authorization", alice)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.UserID)

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, "", "Authorization", bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/transactions", "", "Authorization", bob)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	assert.EqualValues(t, 5, srv.security.authFailures)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rr := do(t, srv, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Forwarding headers from untrusted peers are ignored.
	rr = do(t, srv, http.MethodGet, "/health", "", "X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code, "untrusted peers cannot pick their address")
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	amountErr := &core.AmountError{TransactionID: "t1", Value: "abc", Err: core.ErrInvalidAmount}
	_, exportErr := export.Transactions([]core.Transaction{{ID: "t2", Type: core.Expense, Amount: "abc"}}, time.Now(), time.UTC)
	require.Error(t, exportErr)

	tests := []struct {
		err  error
		want int
	}{
		{amountErr, http.StatusUnprocessableEntity},
		{exportErr, http.StatusUnprocessableEntity},
		{fmt.Errorf("summary: %w", core.ErrAmountOverflow), http.StatusUnprocessableEntity},
		{fmt.Errorf("export: %w", export.ErrNothingToExport), http.StatusUnprocessableEntity},
		{fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrDefaultCategory, http.StatusForbidden},
		{core.ErrInvalidAmount, http.StatusBadRequest},
		{report.ErrInvalidRange, http.StatusBadRequest},
		{store.ErrInvalidFilter, http.StatusBadRequest},
		{services.ErrUnknownCategory, http.StatusBadRequest},
		{core.ErrCategoryTypeMismatch, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

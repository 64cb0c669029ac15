package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func sampleItems() []model.ResolvedLineItem {
	d := decimal.RequireFromString
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return []model.ResolvedLineItem{
		{
			RawLineItem:    model.RawLineItem{Name: "COMMANDEUR", UnitPrice: d("33.00"), Quantity: 1},
			CanonicalName:  "Gulpener Commandeur Beer",
			Category:       "Alcohol",
			CataloguePrice: d("3.99"),
			RecordedAt:     at,
		},
		{
			RawLineItem:    model.RawLineItem{Name: "BB ROERBAK ITAL", UnitPrice: d("2.49"), Quantity: 2},
			CanonicalName:  "Bellella Italian Stir Fry Mix",
			Category:       "Vegetables",
			CataloguePrice: d("2.49"),
			IsPromotional:  true,
			RecordedAt:     at,
		},
	}
}

func samplePolicy(t *testing.T) *budget.Policy {
	t.Helper()
	p, err := budget.NewPolicy(map[string]decimal.Decimal{"Alcohol": decimal.NewFromInt(30)})
	require.NoError(t, err)
	return p
}

func TestNewReport(t *testing.T) {
	items := sampleItems()
	report := NewReport(items, ledger.Totals(items), samplePolicy(t), time.Now())

	require.Len(t, report.Budgets, 2)
	assert.Equal(t, "Alcohol", report.Budgets[0].Category)
	assert.Equal(t, model.TierExceeded, report.Budgets[0].Tier)
	assert.Equal(t, "-3.00", report.Budgets[0].Remaining().StringFixed(2))
	assert.Equal(t, "Vegetables", report.Budgets[1].Category)
	assert.Equal(t, "100", report.Budgets[1].Limit.String())
	assert.Equal(t, model.TierOK, report.Budgets[1].Tier)
	assert.Equal(t, "35.49", report.TotalSpend.StringFixed(2))
}

func TestPrepareReportData(t *testing.T) {
	items := sampleItems()
	values := prepareReportData(NewReport(items, ledger.Totals(items), samplePolicy(t), time.Now()))

	assert.Equal(t, []any{"Total Spend", "35.49"}, values[2])
	assert.Equal(t, []any{"Alcohol", "33.00", "30.00", "-3.00", "EXCEEDED"}, values[5])

	last := values[len(values)-1]
	assert.Equal(t, "BB ROERBAK ITAL", last[1])
	assert.Equal(t, 2, last[5])
	assert.Equal(t, "yes", last[7])
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(nil, nil)
	require.NoError(t, l.Record(ctx, sampleItems()))

	mock := &MockWriter{}
	id, err := Export(ctx, mock, l, samplePolicy(t))
	require.NoError(t, err)
	assert.Equal(t, "mock-spreadsheet", id)
	assert.Equal(t, 1, mock.Calls)
	assert.Len(t, mock.LastReport.Transactions, 2)

	mock.WriteFunc = func(context.Context, Report) (string, error) { return "", errors.New("quota exceeded") }
	_, err = Export(ctx, mock, l, samplePolicy(t))
	assert.ErrorContains(t, err, "quota exceeded")
}

type fakeSheetsAPI struct {
	updates     []sheets.ValueRange
	failUpdates int
	cleared     bool
	formatted   bool
	mu          sync.Mutex
}

func (f *fakeSheetsAPI) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
		case strings.HasSuffix(path, ":clear"):
			f.cleared = true
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
			if f.failUpdates > 0 {
				f.failUpdates--
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":{"code":503,"message":"backend error"}}`))
				return
			}
			var vr sheets.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			f.updates = append(f.updates, vr)
			_, _ = w.Write([]byte(`{}`))
		case strings.HasSuffix(path, ":batchUpdate"):
			f.formatted = true
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
		}
	}
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, config Config) *Writer {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication())
	require.NoError(t, err)
	return newWriter(srv, config, nil)
}

func TestWriter_Write(t *testing.T) {
	api := &fakeSheetsAPI{failUpdates: 1}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-1"
	config.RetryDelay = time.Millisecond
	config.BatchSize = 5
	w := newTestWriter(t, api, config)

	items := sampleItems()
	id, err := w.Write(context.Background(), NewReport(items, ledger.Totals(items), samplePolicy(t), time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", id)
	assert.True(t, api.cleared)
	assert.True(t, api.formatted)

	rows := 0
	for _, u := range api.updates {
		rows += len(u.Values)
	}
	assert.Equal(t, 12, rows)
	assert.Len(t, api.updates, 3)
}

func TestWriter_MissingSpreadsheet(t *testing.T) {
	config := DefaultConfig()
	config.SpreadsheetID = "missing"
	w := newTestWriter(t, &fakeSheetsAPI{}, config)

	_, err := w.Write(context.Background(), Report{})
	assert.ErrorContains(t, err, "unable to access spreadsheet missing")
}

func TestNewWriter_InvalidConfig(t *testing.T) {
	_, err := NewWriter(context.Background(), Config{}, nil)
	assert.ErrorContains(t, err, "invalid config")
}

func TestCallbackHandler(t *testing.T) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	h := callbackHandler("s1", codes, errs)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, codes)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", <-codes)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Error(t, <-errs)
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "sheets.json")
	require.NoError(t, saveToken(path, &oauth2.Token{RefreshToken: "refresh-me", TokenType: "Bearer"}))

	token, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh-me", token.RefreshToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthieukhl/orderpulse/internal/canonical"
	"github.com/matthieukhl/orderpulse/internal/database"
	"github.com/matthieukhl/orderpulse/internal/database/dbtest"
	"github.com/matthieukhl/orderpulse/internal/errs"
	"github.com/matthieukhl/orderpulse/internal/ingest"
	"github.com/matthieukhl/orderpulse/internal/kpi"
	"github.com/matthieukhl/orderpulse/internal/logging"
	"github.com/matthieukhl/orderpulse/internal/models"
	"github.com/matthieukhl/orderpulse/internal/pipeline"
)

var ist = time.FixedZone("IST", 5*3600+1800)

const customersCSV = "customer_id,customer_name,mobile_number,region\n" +
	"C1,Asha,+91 98765 43210,North\n" +
	"C2,Ravi,918888888888,South\n"

const ordersXML = `<orders>
<order><order_id>O1</order_id><mobile_number>919876543210</mobile_number><order_date_time>2025-06-10 10:00:00</order_date_time><sku_id>S1</sku_id><sku_count>1</sku_count><total_amount>300</total_amount></order>
<order><order_id>O2</order_id><mobile_number>919876543210</mobile_number><order_date_time>2025-06-11 10:00:00</order_date_time><sku_id>S1</sku_id><sku_count>1</sku_count><total_amount>100</total_amount></order>
<order><order_id>O3</order_id><mobile_number>918888888888</mobile_number><order_date_time>2025-06-12 10:00:00</order_date_time><sku_id>S1</sku_id><sku_count>1</sku_count><total_amount>50</total_amount></order>
</orders>`

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	srv *Server
	db  *database.DB
}

func newHarness(t *testing.T, db *database.DB) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := canonical.NewStore(fs, "/data/cleaned")
	log := logging.Discard()
	opts := kpi.Options{
		Location:   ist,
		TopLimit:   10,
		WindowDays: 30,
		Now:        func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, ist) },
	}

	srv := NewServer(Deps{
		DB:     db,
		Runner: pipeline.NewRunner(fs, "/data/upload", store, ist, log),
		Loader: ingest.NewLoader(db, store, ist, log),
		SQL:    kpi.NewSQLEngine(db, opts),
		Memory: kpi.NewMemoryEngine(store, opts),
		Log:    log,
	})
	return &harness{srv: srv, db: db}
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

func (h *harness) uploadFile(t *testing.T, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(t, req)
}

func TestFullFlow(t *testing.T) {
	h := newHarness(t, dbtest.NewWithSchema(t))

	w := h.uploadFile(t, "/upload/customers", "customers.csv", customersCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "customers.csv uploaded successfully")

	w = h.uploadFile(t, "/upload/orders", "orders.xml", ordersXML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, httptest.NewRequest(http.MethodPost, "/clean", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	w = h.do(t, httptest.NewRequest(http.MethodPost, "/db/load", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, source := range []string{"db", "memory"} {
		w = h.do(t, httptest.NewRequest(http.MethodGet, "/kpi/"+source+"/regional-revenue", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var rows []models.RegionRevenue
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		assert.Equal(t, []models.RegionRevenue{
			{Region: "North", Revenue: 400},
			{Region: "South", Revenue: 50},
		}, rows, source)

		w = h.do(t, httptest.NewRequest(http.MethodGet, "/kpi/"+source+"/top-customers?limit=1", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var top []models.TopCustomer
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
		require.Len(t, top, 1)
		assert.Equal(t, "C1", top[0].CustomerID)
	}
}

func TestCleanReportsFailureWithoutDetail(t *testing.T) {
	h := newHarness(t, dbtest.NewWithSchema(t))

	w := h.do(t, httptest.NewRequest(http.MethodPost, "/clean", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestLoadErrorMapping(t *testing.T) {
	t.Run("no canonical files", func(t *testing.T) {
		h := newHarness(t, dbtest.NewWithSchema(t))
		w := h.do(t, httptest.NewRequest(http.MethodPost, "/db/load", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing tables", func(t *testing.T) {
		h := newHarness(t, dbtest.New(t))
		h.uploadFile(t, "/upload/customers", "customers.csv", customersCSV)
		h.uploadFile(t, "/upload/orders", "orders.xml", ordersXML)
		h.do(t, httptest.NewRequest(http.MethodPost, "/clean", nil))

		w := h.do(t, httptest.NewRequest(http.MethodPost, "/db/load", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "init-db")
	})
}

func TestKPIRequestValidation(t *testing.T) {
	h := newHarness(t, dbtest.NewWithSchema(t))

	w := h.do(t, httptest.NewRequest(http.MethodGet, "/kpi/warehouse/regional-revenue", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, q := range []string{"limit=0", "limit=-3", "limit=abc", "tz=Nowhere/Land"} {
		w = h.do(t, httptest.NewRequest(http.MethodGet, "/kpi/db/top-customers?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	w = h.do(t, httptest.NewRequest(http.MethodGet, "/kpi/memory/monthly-order-trends", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "memory path before any cleaning run")
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t, dbtest.New(t))
	w := h.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStatusFor(t *testing.T) {
	cases := map[int]error{
		http.StatusNotFound:            errs.DataNotFound("", "x"),
		http.StatusServiceUnavailable:  errs.Connectivity(context.DeadlineExceeded, ""),
		http.StatusBadRequest:          errs.Schema("", "x"),
		http.StatusInternalServerError: context.Canceled,
	}
	for want, err := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestCORS(t *testing.T) {
	h := newHarness(t, dbtest.New(t))
	h.srv.deps.Origins = []string{"http://localhost:3000"}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := h.do(t, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

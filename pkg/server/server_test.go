package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/report-atlas/pkg/models/api"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/de-tools/report-atlas/pkg/services/report"
	"github.com/de-tools/report-atlas/pkg/services/run"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
	runstore "github.com/de-tools/report-atlas/pkg/store/duckdb/run"
	"github.com/de-tools/report-atlas/pkg/store/params"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersYAML = `name: orders
parameters:
  - name: orders
    required: true
bands:
  - name: Orders
    orientation: vertical
    queries:
      - name: orders
        loader: params
        options:
          param: orders
`

func unmarshalResponse[T any]() func([]byte) (interface{}, error) {
	return func(data []byte) (interface{}, error) {
		var v T
		err := json.Unmarshal(data, &v)
		return v, err
	}
}

func setupServer(t *testing.T) *httptest.Server {
	def, err := report.ParseDefinition([]byte(ordersYAML))
	require.NoError(t, err)
	catalog := report.NewCatalog()
	require.NoError(t, catalog.Add(def))

	loaders := loader.NewRegistry()
	require.NoError(t, loaders.Register(params.LoaderType, params.NewLoader()))
	engine := report.NewEngine(loaders)

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	runs, err := runstore.NewStore(db)
	require.NoError(t, err)

	logger := zerolog.New(zerolog.NewTestWriter(t))
	webAPI := NewWebAPI(logger, Config{
		Addr:            ":0",
		ShutdownTimeout: time.Second,
		Dependencies: Dependencies{
			Catalog: catalog,
			Engine:  engine,
			Runs:    run.NewController(catalog, engine, runs),
		},
	})

	testServer := httptest.NewServer(webAPI.Handler())
	t.Cleanup(testServer.Close)
	return testServer
}

func TestWebAPI_Endpoints(t *testing.T) {
	testServer := setupServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expected       interface{}
		parseResponse  func([]byte) (interface{}, error)
	}{
		{
			name:           "ListReports",
			method:         http.MethodGet,
			path:           "/api/v1/reports",
			expectedStatus: http.StatusOK,
			expected: []api.Report{{
				Name:       "orders",
				Parameters: []api.Parameter{{Name: "orders", Required: true}},
				Bands:      []string{"Orders"},
			}},
			parseResponse: unmarshalResponse[[]api.Report](),
		},
		{
			name:           "Extract",
			method:         http.MethodPost,
			path:           "/api/v1/reports/orders/extract",
			body:           `{"orders": [{"id": 1}, {"id": 2}]}`,
			expectedStatus: http.StatusOK,
			expected: api.Band{
				Name:        domain.RootBandName,
				Orientation: "horizontal",
				Data: map[string]any{"orders": []any{
					map[string]any{"id": float64(1)},
					map[string]any{"id": float64(2)},
				}},
				Children: []api.Band{
					{Name: "Orders", Orientation: "vertical", Data: map[string]any{"id": float64(1)}},
					{Name: "Orders", Orientation: "vertical", Data: map[string]any{"id": float64(2)}},
				},
			},
			parseResponse: unmarshalResponse[api.Band](),
		},
		{
			name:           "Extract_MissingParam",
			method:         http.MethodPost,
			path:           "/api/v1/reports/orders/extract",
			expectedStatus: http.StatusBadRequest,
			expected:       api.ErrorResponse{Error: `validation failed: parameter "orders" is required`},
			parseResponse:  unmarshalResponse[api.ErrorResponse](),
		},
		{
			name:           "Extract_UnknownReport",
			method:         http.MethodPost,
			path:           "/api/v1/reports/nope/extract",
			expectedStatus: http.StatusNotFound,
			expected:       api.ErrorResponse{Error: "report not found: nope"},
			parseResponse:  unmarshalResponse[api.ErrorResponse](),
		},
		{
			name:           "GetRun_Unknown",
			method:         http.MethodGet,
			path:           "/api/v1/runs/nope",
			expectedStatus: http.StatusNotFound,
			expected:       api.ErrorResponse{Error: "run not found: nope"},
			parseResponse:  unmarshalResponse[api.ErrorResponse](),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, testServer.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")

			actual, err := tc.parseResponse(body)
			require.NoError(t, err, "Failed to parse response")

			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestWebAPI_RunLifecycle(t *testing.T) {
	testServer := setupServer(t)

	resp, err := http.Post(testServer.URL+"/api/v1/reports/orders/runs", "application/json",
		strings.NewReader(`{"orders": [{"id": 7}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted api.RunAccepted
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.ID)

	var got api.Run
	require.Eventually(t, func() bool {
		r, err := http.Get(testServer.URL + "/api/v1/runs/" + accepted.ID)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		if r.StatusCode != http.StatusOK {
			return false
		}
		got = api.Run{}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			return false
		}
		return got.Status != store.RunStatusRunning
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, store.RunStatusSucceeded, got.Status)
	assert.Equal(t, "orders", got.Report)
	assert.JSONEq(t, `{"name":"Root","orientation":"horizontal","data":{"orders":[{"id":7}]},
		"children":[{"name":"Orders","orientation":"vertical","data":{"id":7}}]}`, string(got.Result))
}

func TestWebAPI_Metrics(t *testing.T) {
	testServer := setupServer(t)

	resp, err := http.Post(testServer.URL+"/api/v1/reports/orders/extract", "application/json",
		strings.NewReader(`{"orders": []}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(testServer.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "report_extractions_total")
}

func TestWebAPI_ShutdownHook(t *testing.T) {
	called := false
	webAPI := NewWebAPI(zerolog.Nop(), Config{
		OnShutdown: func(context.Context) error {
			called = true
			return nil
		},
	})

	assert.Equal(t, defaultShutdownTimeout, webAPI.config.ShutdownTimeout)
	require.NoError(t, webAPI.config.OnShutdown(context.Background()))
	assert.True(t, called)
}

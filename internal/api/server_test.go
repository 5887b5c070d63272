package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smilemakc/ta-engine/internal/api"
	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/obslog"
	"github.com/smilemakc/ta-engine/internal/obsmetrics"
	"github.com/smilemakc/ta-engine/internal/stream"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	meter, err := obsmetrics.New(noop.NewMeterProvider())
	require.NoError(t, err)
	hub := stream.NewHub(obslog.Nop().Raw())
	return api.NewServer(catalog.New(), kernel.NewRegistry(), obslog.Nop(), meter, hub, api.NewNoAuth())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/catalog", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
}

func TestPreviewEndpointComputesSMA(t *testing.T) {
	srv := newTestServer(t)

	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: int64(3)}},
		Inputs: []ir.Node{
			&ir.SourceRef{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close"},
		},
	}
	expr, err := ir.ToJSON(root)
	require.NoError(t, err)

	body := map[string]any{
		"expression": json.RawMessage(expr),
		"dataset": api.DatasetPayload{
			Series: []api.SeriesPayload{
				{
					Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close",
					Kind:       "number",
					Timestamps: []int64{1, 2, 3, 4, 5},
					Values:     []float64{10, 11, 12, 13, 14},
					Mask:       []bool{true, true, true, true, true},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/preview", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAnalyzeEndpointReportsLookback(t *testing.T) {
	srv := newTestServer(t)
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: int64(14)}},
		Inputs: []ir.Node{
			&ir.SourceRef{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close"},
		},
	}
	expr, err := ir.ToJSON(root)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{"expression": json.RawMessage(expr)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Greater(t, result["Lookback"], float64(0))
}

func TestAnalyzeYAMLEndpointReportsLookback(t *testing.T) {
	srv := newTestServer(t)
	doc := `
name: sma-14
version: "1"
description: 14-period SMA over BTCUSDT close
expression:
  type: Call
  indicator: sma
  params:
    period: 14
  inputs:
    - type: SourceRef
      symbol: BTCUSDT
      timeframe: 1h
      source: ohlcv
      field: close
`
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-yaml", bytes.NewReader([]byte(doc)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, float64(14), result["Lookback"])
}

func TestSessionLifecycleStepsSMAIncrementally(t *testing.T) {
	srv := newTestServer(t)

	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: int64(3)}},
		Inputs: []ir.Node{
			&ir.SourceRef{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close"},
		},
	}
	expr, err := ir.ToJSON(root)
	require.NoError(t, err)

	createBody, err := json.Marshal(map[string]any{
		"expression": json.RawMessage(expr),
		"dataset": api.DatasetPayload{
			Series: []api.SeriesPayload{
				{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close", Kind: "number"},
			},
		},
	})
	require.NoError(t, err)

	createReq := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(createBody))
	createRec := httptest.NewRecorder()
	srv.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusOK, createRec.Code, createRec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	sessionID, _ := created["session_id"].(string)
	require.NotEmpty(t, sessionID)

	events := []evaluator.Event{
		{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 1, Value: 10, Available: true},
		{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 2, Value: 11, Available: true},
		{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 3, Value: 12, Available: true},
	}
	stepBody, err := json.Marshal(map[string]any{"events": events})
	require.NoError(t, err)

	stepReq := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/step", bytes.NewReader(stepBody))
	stepRec := httptest.NewRecorder()
	srv.ServeHTTP(stepRec, stepReq)
	require.Equal(t, http.StatusOK, stepRec.Code, stepRec.Body.String())

	var stepResult map[string]any
	require.NoError(t, json.Unmarshal(stepRec.Body.Bytes(), &stepResult))
	series, ok := stepResult["series"].(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, series)

	snapReq := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sessionID+"/snapshot", nil)
	snapRec := httptest.NewRecorder()
	srv.ServeHTTP(snapRec, snapReq)
	require.Equal(t, http.StatusOK, snapRec.Code, snapRec.Body.String())
}

func TestSessionStepUnknownIDReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	body, err := json.Marshal(map[string]any{"events": []evaluator.Event{}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/does-not-exist/step", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionSnapshotUnknownIDReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/does-not-exist/snapshot", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateEndpointRejectsUnknownIndicator(t *testing.T) {
	srv := newTestServer(t)
	root := &ir.Call{IndicatorID: "not_a_real_indicator"}
	expr, err := ir.ToJSON(root)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"expression": json.RawMessage(expr),
		"dataset":    api.DatasetPayload{},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, false, result["Valid"])
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"estimatex/internal"
	"estimatex/internal/config"
	"estimatex/internal/dsr"
	"estimatex/internal/pipeline"
	"estimatex/internal/report"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	vocab := config.DefaultVocabulary()

	store, err := dsr.Open(filepath.Join(t.TempDir(), "dsr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	err = store.UpsertItems(context.Background(), []internal.DSRItem{
		{ItemCode: "DSR-001", Description: "Cement concrete M20", Unit: "cum", Rate: 8500, Category: "Concrete", IsActive: true},
		{ItemCode: "DSR-003", Description: "Steel reinforcement Fe500", Unit: "kg", Rate: 75, Category: "Steel", IsActive: true},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	logger := zap.NewNop()
	matcher := pipeline.NewMatcher(store, pipeline.NewScorer(vocab), cfg, logger)
	service := pipeline.NewService(pipeline.NewExtractor(vocab), matcher, report.NewStore(cfg.ReportCapacity), "", logger)

	srv := NewServer(service, store, vocab, cfg, logger)
	return srv, srv.routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	return rec, env
}

func TestEstimateMissingPDFData(t *testing.T) {
	_, h := newTestServer(t)

	rec, env := doJSON(t, h, http.MethodPost, "/api/v1/dsr/estimate", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	if env.Success || env.Message != "PDF data is required" {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestEstimateAndReportRetrieval(t *testing.T) {
	_, h := newTestServer(t)

	body := map[string]any{"pdfData": map[string]any{
		"pages": []map[string]any{{
			"text": "Cement concrete M20 - 10 cum\nSteel reinforcement Fe500 - 500 kg",
		}},
	}}
	rec, env := doJSON(t, h, http.MethodPost, "/api/v1/dsr/estimate", body,
		map[string]string{"X-User-ID": "user-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Fatalf("envelope=%+v", env)
	}

	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	var out pipeline.Outcome
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.ExtractedItems != 2 {
		t.Fatalf("extracted=%d", out.ExtractedItems)
	}
	if out.CostEstimate.TotalCost != 122500 {
		t.Fatalf("total=%v", out.CostEstimate.TotalCost)
	}
	if out.ReportID == "" {
		t.Fatal("missing report id")
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/v1/dsr/report/"+out.ReportID, nil,
		map[string]string{"X-User-ID": "user-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data=%T", env.Data)
	}
	summary, ok := data["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary missing: %v", data)
	}
	if summary["total_cost"].(float64) != 122500 {
		t.Fatalf("summary=%v", summary)
	}
	if _, ok := data["detailed_breakdown"]; !ok {
		t.Fatal("detailed_breakdown missing")
	}
}

func TestEstimateNoItemsFound(t *testing.T) {
	_, h := newTestServer(t)

	body := map[string]any{"pdfData": map[string]any{
		"pages": []map[string]any{{"text": "General notes only."}},
	}}
	rec, env := doJSON(t, h, http.MethodPost, "/api/v1/dsr/estimate", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !env.Success || env.Message != "No items found in PDF" {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestReportNotFound(t *testing.T) {
	_, h := newTestServer(t)

	rec, env := doJSON(t, h, http.MethodGet, "/api/v1/dsr/report/dsr_0_missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if env.Success {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestReportOwnerForbidden(t *testing.T) {
	_, h := newTestServer(t)

	body := map[string]any{"pdfData": map[string]any{
		"pages": []map[string]any{{"text": "Cement concrete M20 - 10 cum"}},
	}}
	_, env := doJSON(t, h, http.MethodPost, "/api/v1/dsr/estimate", body,
		map[string]string{"X-User-ID": "alice"})

	raw, _ := json.Marshal(env.Data)
	var out pipeline.Outcome
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}

	rec, _ := doJSON(t, h, http.MethodGet, "/api/v1/dsr/report/"+out.ReportID, nil,
		map[string]string{"X-User-ID": "bob"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestListItems(t *testing.T) {
	_, h := newTestServer(t)

	rec, env := doJSON(t, h, http.MethodGet, "/api/v1/dsr/items?category=Concrete", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	data := env.Data.(map[string]any)
	if data["count"].(float64) != 1 {
		t.Fatalf("data=%v", data)
	}
}

func TestCreateItemRequiresAdmin(t *testing.T) {
	_, h := newTestServer(t)

	body := map[string]any{"item_code": "DSR-100", "description": "Brick masonry", "unit": "cum", "rate": 5200}
	rec, _ := doJSON(t, h, http.MethodPost, "/api/v1/dsr/items", body,
		map[string]string{"X-User-ID": "alice", "X-User-Role": "user"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestCreateItemValidation(t *testing.T) {
	_, h := newTestServer(t)
	admin := map[string]string{"X-User-ID": "alice", "X-User-Role": "admin"}

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing code", map[string]any{"description": "Brick masonry", "unit": "cum", "rate": 5200}},
		{"unknown unit", map[string]any{"item_code": "DSR-100", "description": "Brick masonry", "unit": "furlong", "rate": 5200}},
		{"negative rate", map[string]any{"item_code": "DSR-100", "description": "Brick masonry", "unit": "cum", "rate": -1}},
	}
	for _, tc := range cases {
		rec, env := doJSON(t, h, http.MethodPost, "/api/v1/dsr/items", tc.body, admin)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d envelope=%+v", tc.name, rec.Code, env)
		}
	}
}

func TestCreateAndUpdateItem(t *testing.T) {
	_, h := newTestServer(t)
	admin := map[string]string{"X-User-ID": "alice", "X-User-Role": "admin"}

	body := map[string]any{"item_code": "DSR-100", "description": "Brick masonry in cement mortar", "unit": "cum", "rate": 5200, "category": "Masonry"}
	rec, env := doJSON(t, h, http.MethodPost, "/api/v1/dsr/items", body, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d envelope=%+v", rec.Code, env)
	}

	data := env.Data.(map[string]any)
	item := data["item"].(map[string]any)
	id := int(item["id"].(float64))
	if id == 0 {
		t.Fatalf("item=%v", item)
	}

	rec, env = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/v1/dsr/items/%d", id),
		map[string]any{"rate": 5400}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d envelope=%+v", rec.Code, env)
	}
	updated := env.Data.(map[string]any)["item"].(map[string]any)
	if updated["rate"].(float64) != 5400 {
		t.Fatalf("item=%v", updated)
	}
	if updated["item_code"].(string) != "DSR-100" {
		t.Fatalf("item=%v", updated)
	}
}

func TestUpdateItemNotFound(t *testing.T) {
	_, h := newTestServer(t)
	admin := map[string]string{"X-User-ID": "alice", "X-User-Role": "admin"}

	rec, _ := doJSON(t, h, http.MethodPut, "/api/v1/dsr/items/999",
		map[string]any{"rate": 10}, admin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	_, h := newTestServer(t)

	rec, env := doJSON(t, h, http.MethodGet, "/api/v1/dsr/categories", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	data := env.Data.(map[string]any)
	categories := data["categories"].([]any)
	if len(categories) != 2 {
		t.Fatalf("categories=%v", categories)
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)

	rec, env := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status=%d envelope=%+v", rec.Code, env)
	}
}

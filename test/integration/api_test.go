package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/api"
	"github.com/eugenenazirov/gem-allocator/internal/catalog"
	"github.com/eugenenazirov/gem-allocator/internal/storage"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	cat := catalog.Default()
	store := storage.NewMemoryStorage(cat)
	engine := allocator.New(cat)
	handler := api.NewHandler(engine, store, cat)
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger, api.WithRateLimit(0, 0))
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

type inventoryView struct {
	Inventory []struct {
		Kind              string `json:"kind"`
		Owned             int    `json:"ownedQuantity"`
		Frozen            int    `json:"frozenQuantity"`
		AvailableQuantity int    `json:"availableQuantity"`
	} `json:"inventory"`
}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	updatePayload := map[string]any{"inventory": []map[string]any{
		{"kind": "Ruby", "ownedQuantity": 20},
		{"kind": "Topaz", "ownedQuantity": 6},
	}}
	payload, _ := json.Marshal(updatePayload)
	rec = performRequest(t, handler, http.MethodPut, "/api/inventory/alice", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from inventory update, got %d: %s", rec.Code, rec.Body.String())
	}

	allocPayload := map[string]any{"userId": "alice", "targetValue": 15, "strategy": "SMART", "commit": true}
	body, _ := json.Marshal(allocPayload)
	rec = performRequest(t, handler, http.MethodPost, "/api/allocate", body, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from allocate, got %d: %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Success     bool             `json:"success"`
		Committed   bool             `json:"committed"`
		TotalValue  float64          `json:"totalValue"`
		Combination []allocator.Item `json:"combination"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !response.Success || !response.Committed || response.TotalValue != 15 {
		t.Fatalf("unexpected allocation response %+v", response)
	}
	wantItems := []allocator.Item{
		{Kind: catalog.Ruby, UnitPrice: 1, Quantity: 10, LineValue: 10},
		{Kind: catalog.Topaz, UnitPrice: 5, Quantity: 1, LineValue: 5},
	}
	if diff := cmp.Diff(wantItems, response.Combination); diff != "" {
		t.Fatalf("unexpected combination (-want +got):\n%s", diff)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/inventory/alice", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from inventory get, got %d", rec.Code)
	}
	var view inventoryView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode inventory: %v", err)
	}
	if len(view.Inventory) != 2 {
		t.Fatalf("expected two inventory lines, got %+v", view.Inventory)
	}
	if ruby := view.Inventory[0]; ruby.Frozen != 10 || ruby.AvailableQuantity != 10 {
		t.Fatalf("expected 10 frozen Ruby after commit, got %+v", ruby)
	}
	if topaz := view.Inventory[1]; topaz.Frozen != 1 || topaz.AvailableQuantity != 5 {
		t.Fatalf("expected 1 frozen Topaz after commit, got %+v", topaz)
	}

	// 10 Ruby + 5 Topaz remain available, worth 35.
	body, _ = json.Marshal(map[string]any{"userId": "alice", "targetValue": 50, "strategy": "SMALL"})
	rec = performRequest(t, handler, http.MethodPost, "/api/allocate", body, jsonHeaders)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 once frozen gems are excluded, got %d: %s", rec.Code, rec.Body.String())
	}
}

package solar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wattbridge/beckn-energy-agent/agent/session"
	"github.com/wattbridge/beckn-energy-agent/beckn"
)

/* --------------------------------- fakes ------------------------------------- */

type memoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]map[string]any{}}
}

func (m *memoryStore) Get(_ context.Context, userID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.data[userID]
	if !ok {
		return map[string]any{}, nil
	}
	// Round-trip through JSON like the real stores do.
	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}
	var copied map[string]any
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, err
	}
	return copied, nil
}

func (m *memoryStore) Update(_ context.Context, userID string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.data[userID]
	if existing == nil {
		existing = map[string]any{}
	}
	raw, err := json.Marshal(partial)
	if err != nil {
		return err
	}
	var copied map[string]any
	if err := json.Unmarshal(raw, &copied); err != nil {
		return err
	}
	for k, v := range copied {
		existing[k] = v
	}
	existing[session.LastUpdatedKey] = time.Now().UTC().Format(time.RFC3339Nano)
	m.data[userID] = existing
	return nil
}

func (m *memoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

func (m *memoryStore) ListAll(_ context.Context) (map[string]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memoryStore) PurgeOlderThan(context.Context, int) (int, error) { return 0, nil }

func (m *memoryStore) get(userID, key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[userID][key]
}

type seenRequest struct {
	Path    string
	Context beckn.Context
}

// newCatalogServer records every envelope it receives and answers each path
// with the configured body.
func newCatalogServer(t *testing.T, bodies map[string]string) (*httptest.Server, *[]seenRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []seenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env struct {
			Context beckn.Context `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		seen = append(seen, seenRequest{Path: r.URL.Path, Context: env.Context})
		mu.Unlock()

		body, ok := bodies[r.URL.Path]
		if !ok {
			body = `{"responses":[]}`
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func newTestAgent(t *testing.T, baseURL string) (*Agent, *memoryStore) {
	t.Helper()
	client := beckn.MustNew(beckn.Config{BaseURL: baseURL, Timeout: 5 * time.Second})
	store := newMemoryStore()
	return New(client, store), store
}

/* --------------------------------- tests ------------------------------------- */

const productCatalog = `{
  "responses": [
    {
      "message": {
        "catalog": {
          "providers": [
            {
              "id": "sunco",
              "descriptor": {"name": "SunCo Retail"},
              "items": [
                {
                  "id": "panel-400",
                  "descriptor": {"name": "400W Mono Panel"},
                  "price": {"value": "250", "currency": "USD"}
                }
              ]
            }
          ]
        }
      }
    }
  ]
}`

func TestSearchSolarProductsStoresResults(t *testing.T) {
	t.Parallel()

	server, _ := newCatalogServer(t, map[string]string{"/search": productCatalog})
	agent, store := newTestAgent(t, server.URL)

	products := agent.SearchSolarProducts(context.Background(), "u1")
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].ID != "panel-400" || products[0].ProviderName != "SunCo Retail" {
		t.Fatalf("unexpected product: %+v", products[0])
	}

	stored, ok := store.get("u1", "products").([]any)
	if !ok || len(stored) != 1 {
		t.Fatalf("products must be stored in the session, got %v", store.get("u1", "products"))
	}
}

func TestSearchSolarProductsUpstreamFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	agent, store := newTestAgent(t, server.URL)

	products := agent.SearchSolarProducts(context.Background(), "u1")
	if products == nil || len(products) != 0 {
		t.Fatalf("failure must yield empty slice, got %v", products)
	}
	if store.get("u1", "products") != nil {
		t.Fatal("nothing must be stored on failure")
	}
}

func TestRetailJourneySharesOneTransaction(t *testing.T) {
	t.Parallel()

	orderBody := `{"responses":[{"message":{"order":{"id":"ord-1","status":"CREATED","provider":{"id":"sunco","descriptor":{"name":"SunCo Retail"}},"items":[{"id":"panel-400"}],"quote":{"price":{"value":"250","currency":"USD"}}}}}]}`
	server, seen := newCatalogServer(t, map[string]string{
		"/select":  orderBody,
		"/init":    orderBody,
		"/confirm": orderBody,
	})
	agent, store := newTestAgent(t, server.URL)
	ctx := context.Background()

	selection := agent.SelectSolarProduct(ctx, "u1", "sunco", "panel-400")
	if selection.Item == nil || selection.Item.ID != "panel-400" {
		t.Fatalf("unexpected selection: %+v", selection)
	}
	if selection.Quote == nil || selection.Quote.Price.Value != "250" {
		t.Fatal("selection must carry the quote")
	}

	agent.InitSolarProductOrder(ctx, "u1", "sunco", "panel-400")
	order := agent.ConfirmSolarProductOrder(ctx, "u1", "sunco", "panel-400", map[string]any{"person": map[string]any{"name": "Ada"}})
	if order.ID != "ord-1" {
		t.Fatalf("unexpected confirmed order: %+v", order)
	}

	if len(*seen) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(*seen))
	}
	txn := (*seen)[0].Context.TransactionID
	if txn == "" {
		t.Fatal("journey transaction id must be set")
	}
	for i, req := range *seen {
		if req.Context.TransactionID != txn {
			t.Fatalf("call %d used a different transaction id", i)
		}
		if req.Context.Domain != beckn.DomainRetail {
			t.Fatalf("call %d used domain %s", i, req.Context.Domain)
		}
	}
	if (*seen)[0].Context.MessageID == (*seen)[1].Context.MessageID {
		t.Fatal("message ids must be fresh per call")
	}

	if store.get("u1", "product_order_confirmation") == nil {
		t.Fatal("confirmed order must be stored")
	}
}

func TestServiceConfirmUsesSchemesDomain(t *testing.T) {
	t.Parallel()

	server, seen := newCatalogServer(t, nil)
	agent, _ := newTestAgent(t, server.URL)

	agent.ConfirmOrder(context.Background(), "u1", "installer-1", "svc-1", "ff-1", nil)
	if len(*seen) != 1 {
		t.Fatalf("expected 1 call, got %d", len(*seen))
	}
	if (*seen)[0].Context.Domain != beckn.DomainSchemes {
		t.Fatalf("unexpected domain: %s", (*seen)[0].Context.Domain)
	}
}

func TestEstimateROIDefaults(t *testing.T) {
	t.Parallel()

	server, _ := newCatalogServer(t, nil)
	agent, store := newTestAgent(t, server.URL)

	estimate := agent.EstimateROI(context.Background(), "u1")
	if estimate.SystemSizeKW != 2.8 {
		t.Fatalf("unexpected system size: %v", estimate.SystemSizeKW)
	}
	if estimate.CostUSD != 8400 {
		t.Fatalf("unexpected cost: %v", estimate.CostUSD)
	}
	if estimate.AnnualProductionKWh != 4200 {
		t.Fatalf("unexpected production: %v", estimate.AnnualProductionKWh)
	}
	if estimate.AnnualSavingsUSD != 840 {
		t.Fatalf("unexpected savings: %v", estimate.AnnualSavingsUSD)
	}
	if estimate.PaybackYears != 10 {
		t.Fatalf("unexpected payback: %v", estimate.PaybackYears)
	}
	if estimate.ROI20YearPercent != 100 {
		t.Fatalf("unexpected roi: %v", estimate.ROI20YearPercent)
	}
	if store.get("u1", "roi_estimate") == nil {
		t.Fatal("estimate must be stored")
	}
}

func TestEstimateROIUsesRecordedConsumption(t *testing.T) {
	t.Parallel()

	server, _ := newCatalogServer(t, nil)
	agent, store := newTestAgent(t, server.URL)
	ctx := context.Background()

	if err := store.Update(ctx, "u1", map[string]any{"electricity_consumption": 750.0, "electricity_rate": 0.25}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	estimate := agent.EstimateROI(ctx, "u1")
	if estimate.SystemSizeKW != 6 {
		t.Fatalf("unexpected system size: %v", estimate.SystemSizeKW)
	}
	if estimate.AnnualSavingsUSD != 2250 {
		t.Fatalf("unexpected savings: %v", estimate.AnnualSavingsUSD)
	}
}

func TestAnalyzeRooftopStoresAnalysis(t *testing.T) {
	t.Parallel()

	server, _ := newCatalogServer(t, nil)
	agent, store := newTestAgent(t, server.URL)

	analysis := agent.AnalyzeRooftop(context.Background(), "u1", "https://img.example/roof.jpg")
	if !analysis.Suitable {
		t.Fatal("simulated analysis must report a suitable roof")
	}
	if analysis.EstimatedCapacityKW != 3.8 {
		t.Fatalf("unexpected capacity: %v", analysis.EstimatedCapacityKW)
	}
	if store.get("u1", "rooftop_analysis") == nil {
		t.Fatal("analysis must be stored")
	}
}

func TestSummaryRendersState(t *testing.T) {
	t.Parallel()

	server, _ := newCatalogServer(t, nil)
	agent, store := newTestAgent(t, server.URL)
	ctx := context.Background()

	if err := store.Update(ctx, "u1", map[string]any{"address": "12 Sun St", "electricity_consumption": 350.0}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	agent.EstimateROI(ctx, "u1")

	summary := agent.Summary(ctx, "u1")
	for _, want := range []string{"12 Sun St", "350 kWh", "2.8 kW", "$8400", "10 years", "Not selected"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

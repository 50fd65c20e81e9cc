package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wattbridge/beckn-energy-agent/agent/decision"
	"github.com/wattbridge/beckn-energy-agent/agent/prosumer"
	"github.com/wattbridge/beckn-energy-agent/agent/session"
	"github.com/wattbridge/beckn-energy-agent/agent/solar"
	"github.com/wattbridge/beckn-energy-agent/agent/telemetry"
	"github.com/wattbridge/beckn-energy-agent/agent/token"
	"github.com/wattbridge/beckn-energy-agent/beckn"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"responses":[]}`))
	}))
	t.Cleanup(upstream.Close)

	client := beckn.MustNew(beckn.Config{BaseURL: upstream.URL, Timeout: 5 * time.Second})
	store, err := session.NewFileStore(session.FileConfig{Path: t.TempDir() + "/sessions.json"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	solarAgent := solar.New(client, store)
	prosumerAgent := prosumer.New(client, store, telemetry.NewSimulated(1), token.NewSimulated(), decision.RuleBased{})

	return &Server{
		config:   Config{RequestTimeout: 5 * time.Second},
		solar:    solarAgent,
		prosumer: prosumerAgent,
		users:    map[string]*sync.Mutex{},
	}
}

func TestDispatchUnknownOp(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	_, err := server.dispatch(context.Background(), Request{UserID: "u1", Op: "solar.not_a_thing"})
	if err == nil {
		t.Fatal("unknown op must be rejected")
	}
}

func TestDispatchInvalidArgs(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	_, err := server.dispatch(context.Background(), Request{
		UserID: "u1",
		Op:     "prosumer.grid_sale",
		Args:   json.RawMessage(`{"amount_kwh": "five"}`),
	})
	if err == nil {
		t.Fatal("malformed args must be rejected")
	}
}

func TestDispatchGridSale(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	out, err := server.dispatch(context.Background(), Request{
		UserID: "u1",
		Op:     "prosumer.grid_sale",
		Args:   json.RawMessage(`{"amount_kwh": 5}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var result struct {
		Status         string  `json:"status"`
		TotalAmountUSD float64 `json:"total_amount_usd"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Status != "completed" {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.TotalAmountUSD != 0.90 {
		t.Fatalf("unexpected total: %v", result.TotalAmountUSD)
	}
}

func TestDispatchSolarOpsWithoutArgs(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	out, err := server.dispatch(context.Background(), Request{UserID: "u1", Op: "solar.search_products"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	products, ok := out.([]beckn.Product)
	if !ok {
		t.Fatalf("unexpected result type: %T", out)
	}
	if len(products) != 0 {
		t.Fatalf("empty catalog must yield no products, got %d", len(products))
	}
}

func TestUserLockIsStablePerUser(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	if server.userLock("u1") != server.userLock("u1") {
		t.Fatal("same user must map to the same lock")
	}
	if server.userLock("u1") == server.userLock("u2") {
		t.Fatal("different users must not share a lock")
	}
}

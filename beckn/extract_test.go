package beckn

import (
	"testing"
)

func catalogResponse(providers ...Provider) *CatalogResponse {
	return &CatalogResponse{
		Responses: []CallbackEnvelope{
			{Message: &CallbackMessage{Catalog: &Catalog{Providers: providers}}},
		},
	}
}

func TestExtractSubsidiesNilSafety(t *testing.T) {
	t.Parallel()

	if got := ExtractSubsidies(nil); len(got) != 0 {
		t.Fatalf("nil response must yield empty slice, got %d", len(got))
	}
	if got := ExtractSubsidies(&CatalogResponse{Error: "upstream timeout"}); len(got) != 0 {
		t.Fatalf("error response must yield empty slice, got %d", len(got))
	}
	empty := &CatalogResponse{Responses: []CallbackEnvelope{{}, {Message: &CallbackMessage{}}}}
	if got := ExtractSubsidies(empty); len(got) != 0 {
		t.Fatalf("envelopes without catalogs must yield empty slice, got %d", len(got))
	}
}

func TestExtractSubsidiesDefaults(t *testing.T) {
	t.Parallel()

	resp := catalogResponse(Provider{
		ID:           "prov-1",
		Fulfillments: []Fulfillment{{ID: "ff-1"}, {ID: "ff-2"}},
		Items:        []Item{{ID: "sub-1"}},
	})

	subsidies := ExtractSubsidies(resp)
	if len(subsidies) != 1 {
		t.Fatalf("expected 1 subsidy, got %d", len(subsidies))
	}
	sub := subsidies[0]
	if sub.ProviderName != "Unknown Provider" {
		t.Fatalf("unexpected provider name default: %s", sub.ProviderName)
	}
	if sub.Name != "Unknown Subsidy" {
		t.Fatalf("unexpected subsidy name default: %s", sub.Name)
	}
	if sub.FulfillmentID != "ff-1" {
		t.Fatalf("expected first fulfillment id, got %s", sub.FulfillmentID)
	}
	if sub.Price != "0" || sub.Currency != DefaultCurrency {
		t.Fatalf("unexpected price defaults: %s %s", sub.Price, sub.Currency)
	}
}

func TestExtractInstallersGroupsServicesByProvider(t *testing.T) {
	t.Parallel()

	resp := catalogResponse(Provider{
		ID:         "installer-1",
		Descriptor: &Descriptor{Name: "SunPower Co", ShortDesc: "Rooftop specialists"},
		Locations:  []Location{{ID: "loc-1", GPS: "12.97,77.59"}},
		Items: []Item{
			{ID: "svc-1", Descriptor: &Descriptor{Name: "Residential Install"}, Price: &Price{Value: "2500", Currency: "USD"}},
			{ID: "svc-2", Descriptor: &Descriptor{Name: "Panel Maintenance"}},
		},
	})

	installers := ExtractInstallers(resp)
	if len(installers) != 1 {
		t.Fatalf("expected 1 installer, got %d", len(installers))
	}
	installer := installers[0]
	if installer.Name != "SunPower Co" {
		t.Fatalf("unexpected installer name: %s", installer.Name)
	}
	if len(installer.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(installer.Services))
	}
	if installer.Services[0].ID != "svc-1" || installer.Services[1].ID != "svc-2" {
		t.Fatal("service order must follow catalog order")
	}
	if len(installer.Locations) != 1 || installer.Locations[0].GPS != "12.97,77.59" {
		t.Fatal("provider locations must be carried over")
	}
}

func TestCollectTagsLabelPrecedenceAndLastWins(t *testing.T) {
	t.Parallel()

	tags := []Tag{
		{
			Descriptor: &Descriptor{Code: "eligibility", Description: "Eligibility"},
			List: []TagEntry{
				{Descriptor: &Descriptor{Code: "min_kw"}, Value: "3"},
				{Descriptor: &Descriptor{Code: "min_kw"}, Value: "5"},
				{Descriptor: &Descriptor{Code: "empty"}, Value: ""},
				{Value: "orphan"},
			},
		},
		{Descriptor: &Descriptor{}},
	}

	got := collectTags(tags)
	if len(got) != 1 {
		t.Fatalf("expected 1 tag group, got %d", len(got))
	}
	group, ok := got["Eligibility"]
	if !ok {
		t.Fatal("description must win over code as group key")
	}
	if len(group) != 1 {
		t.Fatalf("keyless and valueless entries must be dropped, got %d entries", len(group))
	}
	if group["min_kw"] != "5" {
		t.Fatalf("duplicate keys must keep the last value, got %s", group["min_kw"])
	}
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want float64
	}{
		{"0.18", 0.18},
		{"0.20 USD/kWH", 0.20},
		{" 2500 ", 2500},
		{"-1.5", -1.5},
		{"", 0},
		{"free", 0},
		{"USD 0.20", 0},
	}
	for _, tc := range cases {
		if got := ParsePrice(tc.raw); got != tc.want {
			t.Fatalf("ParsePrice(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestClassifyOpportunity(t *testing.T) {
	t.Parallel()

	if got := classifyOpportunity("demand_response", "Peak Hour Selling"); got != "demand_response" {
		t.Fatalf("explicit code must win, got %s", got)
	}
	if got := classifyOpportunity("", "Peak Hour Selling"); got != OpportunitySellExcess {
		t.Fatalf("unexpected type for selling: %s", got)
	}
	if got := classifyOpportunity("", "Off-Peak Buy Program"); got != OpportunityBuyEnergy {
		t.Fatalf("unexpected type for buying: %s", got)
	}
	if got := classifyOpportunity("", "Community Share"); got != OpportunityP2PSharing {
		t.Fatalf("unexpected default type: %s", got)
	}
}

func TestExtractTradingOpportunitiesP2PLocation(t *testing.T) {
	t.Parallel()

	resp := catalogResponse(
		Provider{
			ID:         "community-9",
			Descriptor: &Descriptor{Name: "Community Energy Group"},
			Locations:  []Location{{GPS: "37.77,-122.41", Address: "94110"}},
			Items: []Item{
				{ID: "opp-p2p", Descriptor: &Descriptor{Name: "Neighbor Sharing"}, Price: &Price{Value: "0.12 USD/kWH"}},
			},
		},
		Provider{
			ID:    "grid-9",
			Items: []Item{{ID: "opp-sell", Descriptor: &Descriptor{Name: "Peak Hour Selling"}, Price: &Price{Value: "0.15"}}},
		},
	)

	opportunities := ExtractTradingOpportunities(resp)
	if len(opportunities) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(opportunities))
	}

	p2p := opportunities[0]
	if p2p.Type != OpportunityP2PSharing {
		t.Fatalf("unexpected type: %s", p2p.Type)
	}
	if p2p.PricePerKWh != 0.12 {
		t.Fatalf("unit suffix must be stripped, got %v", p2p.PricePerKWh)
	}
	if p2p.Location == nil || p2p.Location.GPS != "37.77,-122.41" {
		t.Fatal("p2p opportunity must carry the provider location")
	}

	sell := opportunities[1]
	if sell.Type != OpportunitySellExcess {
		t.Fatalf("unexpected type: %s", sell.Type)
	}
	if sell.Location != nil {
		t.Fatal("non-p2p opportunity must not carry a location")
	}
}

func TestExtractOrder(t *testing.T) {
	t.Parallel()

	if got := ExtractOrder(nil); got.ID != "" {
		t.Fatal("nil response must yield zero order")
	}

	resp := &CatalogResponse{
		Responses: []CallbackEnvelope{
			{Message: &CallbackMessage{}},
			{Message: &CallbackMessage{Order: &Order{
				ID:     "order-77",
				Status: "CONFIRMED",
				Quote:  &Quote{Price: &Price{Value: "4200", Currency: "USD"}},
			}}},
		},
	}
	order := ExtractOrder(resp)
	if order.ID != "order-77" {
		t.Fatalf("unexpected order id: %s", order.ID)
	}
	if order.Status != "CONFIRMED" {
		t.Fatalf("unexpected status: %s", order.Status)
	}
	if order.Quote == nil || order.Quote.Price.Value != "4200" {
		t.Fatal("quote must be carried over")
	}
}

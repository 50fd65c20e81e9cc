package beckn

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Flattened projections of catalog payloads. Extractors never fail: a nil or
// malformed response yields an empty result and a warning, and per-field
// parse problems fall back to safe zero values.

// TagMap flattens repeated tag groups: outer key is the tag group label,
// inner map is entry label to value. Duplicate inner keys keep the last
// occurrence.
type TagMap map[string]map[string]string

type Subsidy struct {
	ID              string `json:"id"`
	ProviderID      string `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	FulfillmentID   string `json:"fulfillment_id"`
	ProviderDesc    string `json:"provider_desc"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	LongDescription string `json:"long_description"`
	Image           string `json:"image"`
	Price           string `json:"price"`
	Currency        string `json:"currency"`
	Tags            TagMap `json:"tags"`
}

type Installer struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ShortDesc string     `json:"short_desc"`
	LongDesc  string     `json:"long_desc"`
	Image     string     `json:"image"`
	Locations []Location `json:"locations"`
	Services  []Service  `json:"services"`
}

type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	LongDescription string `json:"long_description"`
	Image           string `json:"image"`
	Price           string `json:"price"`
	Currency        string `json:"currency"`
	Tags            TagMap `json:"tags"`
}

type EnergyProgram struct {
	ID              string `json:"id"`
	ProviderID      string `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	LongDescription string `json:"long_description"`
	Image           string `json:"image"`
	Tags            TagMap `json:"tags"`
}

type Product struct {
	ID           string `json:"id"`
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Image        string `json:"image"`
}

// Opportunity classes. Items without an explicit descriptor code are
// classified by keyword on their display name; p2p_sharing is the fallback.
const (
	OpportunitySellExcess = "sell_excess"
	OpportunityBuyEnergy  = "buy_energy"
	OpportunityP2PSharing = "p2p_sharing"
)

type TradingOpportunity struct {
	ID           string               `json:"id"`
	ProviderID   string               `json:"provider_id"`
	ProviderName string               `json:"provider_name"`
	Type         string               `json:"type"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	PricePerKWh  float64              `json:"price_per_kwh"`
	Currency     string               `json:"currency"`
	Location     *OpportunityLocation `json:"location,omitempty"`
	Tags         TagMap               `json:"tags"`
}

type OpportunityLocation struct {
	GPS     string `json:"gps,omitempty"`
	Address any    `json:"address,omitempty"`
}

/* -------------------------------- extractors -------------------------------- */

// ExtractSubsidies flattens a schemes search response into one record per
// catalog item.
func ExtractSubsidies(resp *CatalogResponse) []Subsidy {
	subsidies := []Subsidy{}
	if !validResponse(resp, "subsidy") {
		return subsidies
	}

	forEachProvider(resp, func(provider *Provider) {
		for i := range provider.Items {
			item := &provider.Items[i]
			subsidies = append(subsidies, Subsidy{
				ID:              item.ID,
				ProviderID:      provider.ID,
				ProviderName:    provider.Descriptor.name(unknownProvider),
				FulfillmentID:   provider.firstFulfillmentID(),
				ProviderDesc:    provider.Descriptor.shortDesc(),
				Name:            item.Descriptor.name(unknownSubsidy),
				Description:     item.Descriptor.shortDesc(),
				LongDescription: item.Descriptor.longDesc(),
				Image:           item.Descriptor.firstImageURL(),
				Price:           item.Price.value(defaultPriceValue),
				Currency:        item.Price.currency(DefaultCurrency),
				Tags:            collectTags(item.Tags),
			})
		}
	})
	return subsidies
}

// ExtractInstallers flattens a services search response into one record per
// provider, carrying its service items and locations.
func ExtractInstallers(resp *CatalogResponse) []Installer {
	installers := []Installer{}
	if !validResponse(resp, "installer") {
		return installers
	}

	forEachProvider(resp, func(provider *Provider) {
		installer := Installer{
			ID:        provider.ID,
			Name:      provider.Descriptor.name(unknownProvider),
			ShortDesc: provider.Descriptor.shortDesc(),
			LongDesc:  provider.Descriptor.longDesc(),
			Image:     provider.Descriptor.firstImageURL(),
			Locations: provider.Locations,
			Services:  []Service{},
		}
		for i := range provider.Items {
			item := &provider.Items[i]
			installer.Services = append(installer.Services, Service{
				ID:              item.ID,
				Name:            item.Descriptor.name(unknownService),
				Description:     item.Descriptor.shortDesc(),
				LongDescription: item.Descriptor.longDesc(),
				Image:           item.Descriptor.firstImageURL(),
				Price:           item.Price.value(defaultPriceValue),
				Currency:        item.Price.currency(DefaultCurrency),
				Tags:            collectTags(item.Tags),
			})
		}
		installers = append(installers, installer)
	})
	return installers
}

// ExtractEnergyPrograms flattens a programs search response.
func ExtractEnergyPrograms(resp *CatalogResponse) []EnergyProgram {
	programs := []EnergyProgram{}
	if !validResponse(resp, "energy program") {
		return programs
	}

	forEachProvider(resp, func(provider *Provider) {
		for i := range provider.Items {
			item := &provider.Items[i]
			programs = append(programs, EnergyProgram{
				ID:              item.ID,
				ProviderID:      provider.ID,
				ProviderName:    provider.Descriptor.name(unknownProvider),
				Name:            item.Descriptor.name(unknownProgram),
				Description:     item.Descriptor.shortDesc(),
				LongDescription: item.Descriptor.longDesc(),
				Image:           item.Descriptor.firstImageURL(),
				Tags:            collectTags(item.Tags),
			})
		}
	})
	return programs
}

// ExtractProducts flattens a retail search response.
func ExtractProducts(resp *CatalogResponse) []Product {
	products := []Product{}
	if !validResponse(resp, "product") {
		return products
	}

	forEachProvider(resp, func(provider *Provider) {
		for i := range provider.Items {
			item := &provider.Items[i]
			products = append(products, Product{
				ID:           item.ID,
				ProviderID:   provider.ID,
				ProviderName: provider.Descriptor.name(unknownProvider),
				Name:         item.Descriptor.name(unknownProduct),
				Description:  item.Descriptor.shortDesc(),
				Price:        item.Price.value(defaultPriceValue),
				Currency:     item.Price.currency(DefaultCurrency),
				Image:        item.Descriptor.firstImageURL(),
			})
		}
	})
	return products
}

// ExtractTradingOpportunities flattens an energy trading search response.
// Peer-sharing providers additionally surface their first location.
func ExtractTradingOpportunities(resp *CatalogResponse) []TradingOpportunity {
	opportunities := []TradingOpportunity{}
	if !validResponse(resp, "trading opportunity") {
		return opportunities
	}

	forEachProvider(resp, func(provider *Provider) {
		for i := range provider.Items {
			item := &provider.Items[i]
			opp := TradingOpportunity{
				ID:           item.ID,
				ProviderID:   provider.ID,
				ProviderName: provider.Descriptor.name(unknownProvider),
				Type:         classifyOpportunity(item.Descriptor.code(), item.Descriptor.name("")),
				Name:         item.Descriptor.name(unknownOpportunity),
				Description:  item.Descriptor.shortDesc(),
				PricePerKWh:  ParsePrice(item.Price.value(defaultPriceValue)),
				Currency:     item.Price.currency(DefaultCurrency),
				Tags:         collectTags(item.Tags),
			}
			if opp.Type == OpportunityP2PSharing && len(provider.Locations) > 0 {
				loc := provider.Locations[0]
				opp.Location = &OpportunityLocation{GPS: loc.GPS, Address: loc.Address}
			}
			opportunities = append(opportunities, opp)
		}
	})
	return opportunities
}

// ExtractOrder returns the first order found in the response envelopes, or a
// zero Order when none is present.
func ExtractOrder(resp *CatalogResponse) Order {
	if resp == nil {
		log.Warn().Msg("invalid response shape for order extraction")
		return Order{}
	}
	for _, env := range resp.Responses {
		if env.Message != nil && env.Message.Order != nil {
			return *env.Message.Order
		}
	}
	return Order{}
}

/* --------------------------------- helpers ---------------------------------- */

func validResponse(resp *CatalogResponse, what string) bool {
	if resp == nil || resp.Responses == nil {
		log.Warn().Str("extract", what).Msg("invalid response shape")
		return false
	}
	return true
}

// forEachProvider visits providers in responses-order then providers-order,
// so extracted records preserve the upstream ordering.
func forEachProvider(resp *CatalogResponse, visit func(*Provider)) {
	for _, env := range resp.Responses {
		if env.Message == nil || env.Message.Catalog == nil {
			continue
		}
		providers := env.Message.Catalog.Providers
		for i := range providers {
			visit(&providers[i])
		}
	}
}

func collectTags(tags []Tag) TagMap {
	out := TagMap{}
	for _, tag := range tags {
		group := tag.Descriptor.label()
		if group == "" {
			continue
		}
		values := map[string]string{}
		for _, entry := range tag.List {
			key := entry.Descriptor.label()
			if key == "" || entry.Value == "" {
				continue
			}
			values[key] = entry.Value
		}
		if len(values) > 0 {
			out[group] = values
		}
	}
	return out
}

// ParsePrice converts a price string to a float. The network is inconsistent
// about embedding units in the value ("0.20 USD/kWH"), so a trailing
// non-numeric annotation is stripped before parsing. Anything unparseable
// becomes 0.
func ParsePrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}

	end := 0
	for end < len(s) {
		c := s[end]
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}

func classifyOpportunity(code, name string) string {
	if code != "" {
		return code
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "sell"):
		return OpportunitySellExcess
	case strings.Contains(lower, "buy"):
		return OpportunityBuyEnergy
	default:
		return OpportunityP2PSharing
	}
}

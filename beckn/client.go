package beckn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const maxResponseSizeBytes = 4 << 20

// Config configures the protocol client. The base URL default points at the
// becknprotocol.io energy test network BAP client.
type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://bap-ps-client-deg-team8.becknprotocol.io"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	Network NetworkConfig
}

// Client issues the five Beckn actions as synchronous POSTs against the BAP
// client endpoint. It holds no per-call state; correlation across a
// multi-step order is carried by the caller via WithTransaction.
type Client struct {
	baseURL    string
	network    NetworkConfig
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("beckn base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid beckn base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		network: cfg.Network,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

/* ------------------------------ error taxonomy ------------------------------ */

// ErrorKind classifies a failed call so callers can degrade uniformly
// instead of inspecting error strings.
type ErrorKind string

const (
	ErrorTransport ErrorKind = "transport"
	ErrorHTTP      ErrorKind = "http"
	ErrorDecode    ErrorKind = "decode"
)

// CallError is the single error type the client returns.
type CallError struct {
	Kind   ErrorKind
	Action string
	Status int
	Err    error
}

func (e *CallError) Error() string {
	if e.Kind == ErrorHTTP {
		return fmt.Sprintf("beckn %s: http status %d", e.Action, e.Status)
	}
	return fmt.Sprintf("beckn %s: %s error: %v", e.Action, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

/* ------------------------------- call options ------------------------------- */

type CallOption func(*callOptions)

type callOptions struct {
	domain        string
	transactionID string
	city          string
	country       string
}

// WithDomain overrides the method's default Beckn domain.
func WithDomain(domain string) CallOption {
	return func(o *callOptions) { o.domain = domain }
}

// WithTransaction carries one transaction id across a select/init/confirm
// journey. A fresh message id is still minted per call.
func WithTransaction(id string) CallOption {
	return func(o *callOptions) { o.transactionID = id }
}

func WithCityCode(code string) CallOption {
	return func(o *callOptions) { o.city = code }
}

func WithCountryCode(code string) CallOption {
	return func(o *callOptions) { o.country = code }
}

/* ----------------------------- request messages ----------------------------- */

type envelope struct {
	Context Context `json:"context"`
	Message any     `json:"message"`
}

type searchMessage struct {
	Descriptor *Descriptor `json:"descriptor,omitempty"`
	Intent     *Intent     `json:"intent,omitempty"`
}

type Intent struct {
	Descriptor  *Descriptor        `json:"descriptor,omitempty"`
	Item        *IntentItem        `json:"item,omitempty"`
	Category    *IntentCategory    `json:"category,omitempty"`
	Fulfillment *IntentFulfillment `json:"fulfillment,omitempty"`
}

type IntentItem struct {
	Descriptor *Descriptor `json:"descriptor,omitempty"`
}

type IntentCategory struct {
	Descriptor *Descriptor `json:"descriptor,omitempty"`
}

type IntentFulfillment struct {
	Type     string       `json:"type,omitempty"`
	Location any          `json:"location,omitempty"`
	Agent    *IntentAgent `json:"agent,omitempty"`
}

type IntentAgent struct {
	Organization *Organization `json:"organization,omitempty"`
}

type Organization struct {
	Descriptor *Descriptor `json:"descriptor,omitempty"`
}

type orderMessage struct {
	Order orderRequest `json:"order"`
}

type orderRequest struct {
	Provider     providerRef   `json:"provider"`
	Items        []Item        `json:"items"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
}

type providerRef struct {
	ID string `json:"id"`
}

type statusMessage struct {
	OrderID string `json:"order_id"`
}

// TradeDirection encodes which side of an energy trade the prosumer takes.
type TradeDirection string

const (
	TradeSell TradeDirection = "SELL"
	TradeBuy  TradeDirection = "BUY"
)

/* -------------------------------- operations -------------------------------- */

// SearchSubsidies looks up subsidy and incentive schemes. The schemes domain
// takes a bare descriptor as its search intent.
func (c *Client) SearchSubsidies(ctx context.Context, query string, opts ...CallOption) (*CatalogResponse, error) {
	if query == "" {
		query = DefaultSubsidyQuery
	}
	msg := searchMessage{Descriptor: &Descriptor{Name: query}}
	return c.call(ctx, ActionSearch, DomainSchemes, msg, opts)
}

// SearchEnergyPrograms looks up grid flexibility programs.
func (c *Client) SearchEnergyPrograms(ctx context.Context, query string, opts ...CallOption) (*CatalogResponse, error) {
	if query == "" {
		query = DefaultProgramQuery
	}
	msg := searchMessage{Intent: &Intent{Item: &IntentItem{Descriptor: &Descriptor{Name: query}}}}
	return c.call(ctx, ActionSearch, DomainSchemes, msg, opts)
}

// SearchSolarProducts looks up panels and related retail products.
func (c *Client) SearchSolarProducts(ctx context.Context, query string, opts ...CallOption) (*CatalogResponse, error) {
	if query == "" {
		query = DefaultProductQuery
	}
	msg := searchMessage{Intent: &Intent{Item: &IntentItem{Descriptor: &Descriptor{Name: query}}}}
	return c.call(ctx, ActionSearch, DomainRetail, msg, opts)
}

// SearchSolarServices looks up installation and maintenance services. The
// service domain expects the query on the intent descriptor itself.
func (c *Client) SearchSolarServices(ctx context.Context, query string, opts ...CallOption) (*CatalogResponse, error) {
	if query == "" {
		query = DefaultServiceQuery
	}
	msg := searchMessage{Intent: &Intent{Descriptor: &Descriptor{Name: query}}}
	return c.call(ctx, ActionSearch, DomainService, msg, opts)
}

// SearchTradingOpportunities looks up open energy-trade offers. location is
// optional and passed through to the fulfillment intent when set.
func (c *Client) SearchTradingOpportunities(ctx context.Context, location any, opts ...CallOption) (*CatalogResponse, error) {
	fulfillment := &IntentFulfillment{Type: "ENERGY_TRADE"}
	if location != nil {
		fulfillment.Location = location
	}
	msg := searchMessage{Intent: &Intent{Fulfillment: fulfillment}}
	return c.call(ctx, ActionSearch, DomainEnergy, msg, opts)
}

// SearchP2PTrading looks up peer-to-peer offers, scoping by item name and
// counterparty organization.
func (c *Client) SearchP2PTrading(ctx context.Context, query, organization string, opts ...CallOption) (*CatalogResponse, error) {
	intent := &Intent{Item: &IntentItem{Descriptor: &Descriptor{Name: query}}}
	if organization != "" {
		intent.Fulfillment = &IntentFulfillment{
			Agent: &IntentAgent{Organization: &Organization{Descriptor: &Descriptor{Name: organization}}},
		}
	}
	return c.call(ctx, ActionSearch, DomainP2PTrading, searchMessage{Intent: intent}, opts)
}

// SearchDemandResponsePrograms looks up demand response programs.
func (c *Client) SearchDemandResponsePrograms(ctx context.Context, opts ...CallOption) (*CatalogResponse, error) {
	msg := searchMessage{Intent: &Intent{Category: &IntentCategory{Descriptor: &Descriptor{Code: "demand-response"}}}}
	return c.call(ctx, ActionSearch, DomainPrograms, msg, opts)
}

// SelectItem selects one item from a provider's catalog.
func (c *Client) SelectItem(ctx context.Context, providerID, itemID string, opts ...CallOption) (*CatalogResponse, error) {
	msg := orderMessage{Order: orderRequest{
		Provider: providerRef{ID: providerID},
		Items:    []Item{{ID: itemID}},
	}}
	return c.call(ctx, ActionSelect, DomainService, msg, opts)
}

// InitOrder initializes an order for one item.
func (c *Client) InitOrder(ctx context.Context, providerID, itemID string, opts ...CallOption) (*CatalogResponse, error) {
	msg := orderMessage{Order: orderRequest{
		Provider: providerRef{ID: providerID},
		Items:    []Item{{ID: itemID}},
	}}
	return c.call(ctx, ActionInit, DomainService, msg, opts)
}

// ConfirmOrder confirms an order, attaching the fulfillment leg and the
// customer record.
func (c *Client) ConfirmOrder(ctx context.Context, providerID, itemID, fulfillmentID string, customer map[string]any, opts ...CallOption) (*CatalogResponse, error) {
	msg := orderMessage{Order: orderRequest{
		Provider: providerRef{ID: providerID},
		Items:    []Item{{ID: itemID}},
		Fulfillments: []Fulfillment{{
			ID:       fulfillmentID,
			Customer: customer,
		}},
	}}
	return c.call(ctx, ActionConfirm, DomainService, msg, opts)
}

// CheckStatus fetches the current state of an order.
func (c *Client) CheckStatus(ctx context.Context, orderID string, opts ...CallOption) (*CatalogResponse, error) {
	return c.call(ctx, ActionStatus, DomainService, statusMessage{OrderID: orderID}, opts)
}

// ExecuteEnergyTrade initializes a buy or sell trade. The direction is
// encoded in both the item id and the descriptor code, per the network's
// convention.
func (c *Client) ExecuteEnergyTrade(ctx context.Context, providerID string, amountKWh, pricePerKWh float64, direction TradeDirection, opts ...CallOption) (*CatalogResponse, error) {
	lower := strings.ToLower(string(direction))
	name := "Energy " + strings.ToUpper(lower[:1]) + lower[1:]
	msg := orderMessage{Order: orderRequest{
		Provider: providerRef{ID: providerID},
		Items: []Item{{
			ID:         "energy-" + lower,
			Descriptor: &Descriptor{Name: name, Code: string(direction)},
			Price: &Price{
				Value:    formatAmount(pricePerKWh),
				Currency: DefaultCurrency,
			},
			Quantity: &Quantity{Measure: &Measure{
				Value: formatAmount(amountKWh),
				Unit:  "kWh",
			}},
		}},
	}}
	return c.call(ctx, ActionInit, DomainEnergy, msg, opts)
}

// CreateEnergyNFT initializes a tokenization order for produced energy.
func (c *Client) CreateEnergyNFT(ctx context.Context, providerID string, amountKWh float64, opts ...CallOption) (*CatalogResponse, error) {
	msg := orderMessage{Order: orderRequest{
		Provider: providerRef{ID: providerID},
		Items: []Item{{
			ID:         "energy-nft",
			Descriptor: &Descriptor{Name: "Energy NFT", Code: "ENERGY_TOKEN"},
			Quantity: &Quantity{Measure: &Measure{
				Value: formatAmount(amountKWh),
				Unit:  "kWh",
			}},
		}},
	}}
	return c.call(ctx, ActionInit, DomainTokens, msg, opts)
}

/* --------------------------------- plumbing --------------------------------- */

func (c *Client) call(ctx context.Context, action, defaultDomain string, message any, opts []CallOption) (*CatalogResponse, error) {
	options := callOptions{domain: defaultDomain}
	for _, opt := range opts {
		opt(&options)
	}

	ctxOpts := make([]ContextOption, 0, 3)
	if options.transactionID != "" {
		ctxOpts = append(ctxOpts, WithTransactionID(options.transactionID))
	}
	if options.city != "" {
		ctxOpts = append(ctxOpts, WithCity(options.city))
	}
	if options.country != "" {
		ctxOpts = append(ctxOpts, WithCountry(options.country))
	}

	payload := envelope{
		Context: NewContext(action, options.domain, c.network, ctxOpts...),
		Message: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &CallError{Kind: ErrorDecode, Action: action, Err: err}
	}

	endpoint := c.baseURL + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{Kind: ErrorTransport, Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("action", action).Str("domain", options.domain).Str("url", endpoint).Msg("beckn call")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CallError{Kind: ErrorTransport, Action: action, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, &CallError{Kind: ErrorTransport, Action: action, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &CallError{Kind: ErrorHTTP, Action: action, Status: resp.StatusCode}
	}

	var parsed CatalogResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &CallError{Kind: ErrorDecode, Action: action, Err: err}
	}
	return &parsed, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

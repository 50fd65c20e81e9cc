package beckn

import (
	"time"

	"github.com/google/uuid"
)

// Version is the Beckn core version stamped on every context.
const Version = "1.1.0"

// Timestamps are UTC with microsecond precision, e.g.
// 2025-06-01T09:30:00.000000Z.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Beckn domains used across the energy network.
const (
	DomainSchemes    = "deg:schemes"
	DomainRetail     = "deg:retail"
	DomainService    = "deg:service"
	DomainEnergy     = "deg:energy"
	DomainPrograms   = "deg:programs"
	DomainTokens     = "deg:tokens"
	DomainP2PTrading = "uei:p2p_trading"
)

// Protocol actions.
const (
	ActionSearch  = "search"
	ActionSelect  = "select"
	ActionInit    = "init"
	ActionConfirm = "confirm"
	ActionStatus  = "status"
)

const (
	defaultCityCode    = "NANP:628"
	defaultCountryCode = "USA"
)

// Context is the Beckn envelope header sent with every request.
type Context struct {
	Domain        string          `json:"domain"`
	Action        string          `json:"action"`
	Location      ContextLocation `json:"location"`
	Version       string          `json:"version"`
	BapID         string          `json:"bap_id"`
	BapURI        string          `json:"bap_uri"`
	BppID         string          `json:"bpp_id"`
	BppURI        string          `json:"bpp_uri"`
	TransactionID string          `json:"transaction_id"`
	MessageID     string          `json:"message_id"`
	Timestamp     string          `json:"timestamp"`
}

type ContextLocation struct {
	Country CodeRef `json:"country"`
	City    CodeRef `json:"city"`
}

type CodeRef struct {
	Code string `json:"code"`
}

// NetworkConfig carries the BAP/BPP identities used to route calls. Defaults
// point at the becknprotocol.io energy test network.
type NetworkConfig struct {
	BapID  string `envconfig:"BAP_ID" split_words:"true" default:"bap-ps-network-deg-team8.becknprotocol.io"`
	BapURI string `envconfig:"BAP_URI" split_words:"true" default:"https://bap-ps-network-deg-team8.becknprotocol.io"`
	BppID  string `envconfig:"BPP_ID" split_words:"true" default:"bpp-ps-network-deg-team8.becknprotocol.io"`
	BppURI string `envconfig:"BPP_URI" split_words:"true" default:"https://bpp-ps-network-deg-team8.becknprotocol.io"`
}

type ContextOption func(*contextOptions)

type contextOptions struct {
	city          string
	country       string
	transactionID string
}

func WithCity(code string) ContextOption {
	return func(o *contextOptions) { o.city = code }
}

func WithCountry(code string) ContextOption {
	return func(o *contextOptions) { o.country = code }
}

// WithTransactionID pins the transaction id so a multi-step order flow
// (select, init, confirm, status) stays correlated. Without it every context
// gets a fresh one.
func WithTransactionID(id string) ContextOption {
	return func(o *contextOptions) { o.transactionID = id }
}

// NewTransactionID mints an id for a logical order journey.
func NewTransactionID() string {
	return uuid.NewString()
}

// NewContext builds the envelope header for one call. Pure apart from the
// clock and id generation; never fails. The message id is always fresh.
func NewContext(action, domain string, network NetworkConfig, opts ...ContextOption) Context {
	options := contextOptions{
		city:    defaultCityCode,
		country: defaultCountryCode,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.transactionID == "" {
		options.transactionID = NewTransactionID()
	}

	return Context{
		Domain: domain,
		Action: action,
		Location: ContextLocation{
			Country: CodeRef{Code: options.country},
			City:    CodeRef{Code: options.city},
		},
		Version:       Version,
		BapID:         network.BapID,
		BapURI:        network.BapURI,
		BppID:         network.BppID,
		BppURI:        network.BppURI,
		TransactionID: options.transactionID,
		MessageID:     uuid.NewString(),
		Timestamp:     time.Now().UTC().Format(timestampLayout),
	}
}

package contract

// CustomerInfo is the free-form customer record attached to confirm calls;
// the front-end collects it, the agents pass it through.
type CustomerInfo map[string]any

// TradeAction is the decision space for automated trading.
type TradeAction string

const (
	ActionSellToGrid         TradeAction = "sell_to_grid"
	ActionStoreInBattery     TradeAction = "store_in_battery"
	ActionShareWithNeighbors TradeAction = "share_with_neighbors"
	ActionBuyFromGrid        TradeAction = "buy_from_grid"
	ActionNone               TradeAction = "no_action"
)

// TradeResult is the outcome of a grid sale, grid purchase, or p2p share.
type TradeResult struct {
	Status                string      `json:"status"`
	Message               string      `json:"message,omitempty"`
	TransactionType       string      `json:"transaction_type"`
	AmountKWh             float64     `json:"amount_kwh"`
	PricePerKWh           float64     `json:"price_per_kwh,omitempty"`
	TotalAmountUSD        float64     `json:"total_amount_usd,omitempty"`
	TransactionID         string      `json:"transaction_id,omitempty"`
	Timestamp             string      `json:"timestamp,omitempty"`
	NFTDetails            *NFTDetails `json:"nft_details,omitempty"`
	Recipient             string      `json:"recipient,omitempty"`
	CommunityContribution float64     `json:"community_contribution,omitempty"`
	CommunityScore        float64     `json:"community_score,omitempty"`
}

// NFTDetails describes a minted energy token.
type NFTDetails struct {
	TokenID         string  `json:"token_id"`
	Status          string  `json:"status"`
	ValueUSD        float64 `json:"value_usd"`
	Blockchain      string  `json:"blockchain"`
	ContractAddress string  `json:"contract_address"`
	CreationTime    string  `json:"creation_time"`
	Marketplace     string  `json:"marketplace"`
	MarketplaceURL  string  `json:"marketplace_url"`
	Type            string  `json:"type"`
}

type DailyProduction struct {
	Date string  `json:"date"`
	KWh  float64 `json:"kwh"`
}

// ProductionReport summarizes solar output over a date range.
type ProductionReport struct {
	TotalKWh       float64           `json:"total_kwh"`
	Daily          []DailyProduction `json:"daily"`
	PeakKW         float64           `json:"peak_kw"`
	CarbonOffsetKg float64           `json:"carbon_offset_kg"`
}

// DecisionInput is the situation presented to a trading decision provider.
type DecisionInput struct {
	TimeOfDay       string  `json:"time_of_day"`
	IsPeakTime      bool    `json:"is_peak_time"`
	HasExcess       bool    `json:"has_excess"`
	CurrentPrice    float64 `json:"current_price"`
	Forecast        string  `json:"forecast"`
	MinSellPriceKWh float64 `json:"min_sell_price_kwh"`
	MaxBuyPriceKWh  float64 `json:"max_buy_price_kwh"`
	NeighborSharing bool    `json:"neighbor_sharing_enabled"`
	PeakTimeSelling bool    `json:"peak_time_selling"`
	OffPeakBuying   bool    `json:"off_peak_buying"`
	ReservePct      float64 `json:"reserve_capacity_pct"`
	Target          string  `json:"ai_optimization_target"`
}

// Decision is a provider's chosen action plus its reasoning.
type Decision struct {
	Action      TradeAction `json:"action"`
	Explanation string      `json:"explanation"`
}

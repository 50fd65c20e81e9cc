package prosumer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wattbridge/beckn-energy-agent/agent/contract"
	"github.com/wattbridge/beckn-energy-agent/agent/session"
	"github.com/wattbridge/beckn-energy-agent/agent/token"
	"github.com/wattbridge/beckn-energy-agent/beckn"
)

// State keys owned by this agent.
const (
	keyPrograms       = "programs"
	keyDemandResponse = "demand_response_programs"
	keyEnrollment     = "enrollment"
	keyOpportunities  = "trading_opportunities"
	keyAutoTrading    = "auto_trading"
	keyTransactions   = "transactions"
	keyTradingHistory = "trading_history"
	keyNFTs           = "nfts"
	keyTotalEarnings  = "total_earnings"
	keyTotalCosts     = "total_costs"
	keyCommunityScore = "community_score"
)

// Trading price policy. Sale price never drops below the grid floor,
// purchases never exceed the ceiling, and p2p settles between the two.
const (
	gridSaleFloorUSDPerKWh    = 0.18
	gridPurchaseCeilUSDPerKWh = 0.10
	p2pFloorUSDPerKWh         = 0.15
	p2pDiscountFactor         = 0.9

	defaultMinSellPriceKWh = 0.12
	defaultMaxBuyPriceKWh  = 0.08

	peakHourStart = 12
	peakHourEnd   = 20
	peakPriceKWh  = 0.22
	offPeakKWh    = 0.08

	excessThresholdKWh = 2.0
	defaultSystemKW    = 5.0
	monthlyKWhPerKW    = 120.0
)

// Counterparties used when discovery returns nothing.
const (
	fallbackGridProvider      = "grid-op-1"
	fallbackCommunityProvider = "community-1"
	fallbackTokenProvider     = "token-registry-1"
)

// AutoTradeStatus is returned when automated trading is (re)configured.
type AutoTradeStatus struct {
	Status                     string         `json:"status"`
	ConfiguredAt               string         `json:"configured_at"`
	Settings                   map[string]any `json:"settings"`
	EstimatedMonthlyBenefitUSD float64        `json:"estimated_monthly_benefit_usd"`
}

// TradingRecord logs one automated trading evaluation.
type TradingRecord struct {
	Timestamp         string               `json:"timestamp"`
	UserID            string               `json:"user_id"`
	Action            contract.TradeAction `json:"action"`
	Explanation       string               `json:"explanation"`
	IsPeakTime        bool                 `json:"is_peak_time"`
	CurrentPrice      float64              `json:"current_price"`
	CurrentProduction float64              `json:"current_production"`
	Result            contract.TradeResult `json:"result"`
}

type NFTOpportunity struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	Description      string  `json:"description"`
	ValuePerMWh      float64 `json:"value_per_mwh"`
	ValuePerEvent    float64 `json:"value_per_event"`
	MinimumAmountKWh float64 `json:"minimum_amount_kwh,omitempty"`
	MinimumEvents    int     `json:"minimum_events,omitempty"`
	Marketplace      string  `json:"marketplace"`
	Blockchain       string  `json:"blockchain"`
}

type StatsBucket struct {
	TodayKWh    float64 `json:"today_kwh"`
	WeekKWh     float64 `json:"week_kwh"`
	MonthKWh    float64 `json:"month_kwh"`
	LifetimeKWh float64 `json:"lifetime_kwh"`
}

type GridStats struct {
	ExportedKWh        float64 `json:"exported_kwh"`
	ImportedKWh        float64 `json:"imported_kwh"`
	SelfConsumptionPct int     `json:"self_consumption_pct"`
}

type FinancialStats struct {
	SavingsCurrentMonthUSD    float64 `json:"savings_current_month_usd"`
	EarningsCurrentMonthUSD   float64 `json:"earnings_current_month_usd"`
	LifetimeSavingsUSD        float64 `json:"lifetime_savings_usd"`
	ProjectedAnnualSavingsUSD float64 `json:"projected_annual_savings_usd"`
}

type EnvironmentalStats struct {
	CarbonOffsetKg           float64 `json:"carbon_offset_kg"`
	TreesEquivalent          float64 `json:"trees_equivalent"`
	MilesNotDrivenEquivalent float64 `json:"miles_not_driven_equivalent"`
}

type EnergyStats struct {
	Production      StatsBucket        `json:"production"`
	Consumption     StatsBucket        `json:"consumption"`
	GridInteraction GridStats          `json:"grid_interaction"`
	Financial       FinancialStats     `json:"financial"`
	Environmental   EnvironmentalStats `json:"environmental"`
}

// autoTradeSettings is the typed view of the auto_trading state map.
type autoTradeSettings struct {
	MinSellPriceKWh float64
	MaxBuyPriceKWh  float64
	ReservePct      float64
	Target          string
	AutoParticipate bool
	NeighborSharing bool
	TokenRewards    bool
	PeakTimeSelling bool
	OffPeakBuying   bool
}

// Agent manages energy services for prosumers with installed solar:
// flexibility programs, trading, tokenization, automated decisions. Failures
// degrade to empty values; the front-end renders those as "no data".
type Agent struct {
	client    *beckn.Client
	sessions  session.Store
	telemetry contract.TelemetryProvider
	tokens    contract.TokenIssuer
	decider   contract.DecisionProvider

	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Agent)

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithSeed(seed int64) Option {
	return func(a *Agent) { a.rng = rand.New(rand.NewSource(seed)) }
}

func New(client *beckn.Client, sessions session.Store, telemetry contract.TelemetryProvider, tokens contract.TokenIssuer, decider contract.DecisionProvider, opts ...Option) *Agent {
	agent := &Agent{
		client:    client,
		sessions:  sessions,
		telemetry: telemetry,
		tokens:    tokens,
		decider:   decider,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent
}

/* -------------------------------- discovery --------------------------------- */

// SearchEnergyPrograms finds grid flexibility programs.
func (a *Agent) SearchEnergyPrograms(ctx context.Context, userID string) []beckn.EnergyProgram {
	resp, err := a.client.SearchEnergyPrograms(ctx, beckn.DefaultProgramQuery)
	if err != nil {
		a.logErr(err, userID, "search_energy_programs")
		return []beckn.EnergyProgram{}
	}
	programs := beckn.ExtractEnergyPrograms(resp)
	a.save(ctx, userID, keyPrograms, programs)
	return programs
}

// SearchDemandResponsePrograms finds demand response programs.
func (a *Agent) SearchDemandResponsePrograms(ctx context.Context, userID string) []beckn.EnergyProgram {
	resp, err := a.client.SearchDemandResponsePrograms(ctx)
	if err != nil {
		a.logErr(err, userID, "search_demand_response_programs")
		return []beckn.EnergyProgram{}
	}
	programs := beckn.ExtractEnergyPrograms(resp)
	a.save(ctx, userID, keyDemandResponse, programs)
	return programs
}

// EnrollInProgram confirms program enrollment with the customer record.
func (a *Agent) EnrollInProgram(ctx context.Context, userID, providerID, programID, fulfillmentID string, customer contract.CustomerInfo) beckn.Order {
	resp, err := a.client.ConfirmOrder(ctx, providerID, programID, fulfillmentID, customer,
		beckn.WithDomain(beckn.DomainSchemes))
	if err != nil {
		a.logErr(err, userID, "enroll_in_program")
		return beckn.Order{}
	}
	enrollment := beckn.ExtractOrder(resp)
	a.save(ctx, userID, keyEnrollment, enrollment)
	return enrollment
}

// TradingOpportunities finds open trades near the user. When the network has
// nothing on offer the standing grid and community counterparties are
// returned so trading flows still have someone to settle against.
func (a *Agent) TradingOpportunities(ctx context.Context, userID string) []beckn.TradingOpportunity {
	var opportunities []beckn.TradingOpportunity
	resp, err := a.client.SearchTradingOpportunities(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("trading opportunity search failed, using standing counterparties")
	} else {
		opportunities = beckn.ExtractTradingOpportunities(resp)
	}

	if len(opportunities) == 0 {
		opportunities = []beckn.TradingOpportunity{
			{
				ID:           "opp-1",
				ProviderID:   fallbackGridProvider,
				ProviderName: "Local Grid Operator",
				Type:         beckn.OpportunitySellExcess,
				Name:         "Peak Hour Selling",
				Description:  "Sell excess solar production during peak hours",
				PricePerKWh:  0.15,
				Currency:     beckn.DefaultCurrency,
			},
			{
				ID:           "opp-2",
				ProviderID:   fallbackCommunityProvider,
				ProviderName: "Community Energy Group",
				Type:         beckn.OpportunityP2PSharing,
				Name:         "Community Sharing",
				Description:  "Share excess with local community energy group",
				PricePerKWh:  0.12,
				Currency:     beckn.DefaultCurrency,
			},
		}
	}

	a.save(ctx, userID, keyOpportunities, opportunities)
	return opportunities
}

/* ------------------------------ telemetry ------------------------------------ */

// EnergyProduction reports solar output over a date range; empty bounds mean
// the last seven days.
func (a *Agent) EnergyProduction(ctx context.Context, userID, dateFrom, dateTo string) contract.ProductionReport {
	today := a.now()
	from := today.AddDate(0, 0, -7)
	to := today
	if dateFrom != "" {
		if parsed, err := time.Parse("2006-01-02", dateFrom); err == nil {
			from = parsed
		}
	}
	if dateTo != "" {
		if parsed, err := time.Parse("2006-01-02", dateTo); err == nil {
			to = parsed
		}
	}

	systemKW := session.Float(a.state(ctx, userID), "system_size_kw", defaultSystemKW)
	return a.telemetry.Production(userID, from, to, systemKW)
}

// EnergyStats summarizes production, consumption, grid interaction, money
// and carbon for the user's system.
func (a *Agent) EnergyStats(ctx context.Context, userID string) EnergyStats {
	state := a.state(ctx, userID)
	systemKW := session.Float(state, "system_size_kw", defaultSystemKW)
	monthsActive := session.Float(state, "months_active", 12)
	monthly := systemKW * monthlyKWhPerKW

	// Bell-curve production across daylight hours; nothing early or late.
	hour := a.now().Hour()
	var today float64
	if hour > 6 && hour < 19 {
		daylight := float64(hour - 6)
		if daylight > 6 {
			daylight = 12 - daylight
		}
		today = round1(systemKW * 0.9 * (daylight / 6))
	}

	return EnergyStats{
		Production: StatsBucket{
			TodayKWh:    today,
			WeekKWh:     round1(monthly / 4),
			MonthKWh:    round1(monthly),
			LifetimeKWh: round1(monthly * monthsActive),
		},
		Consumption: StatsBucket{
			TodayKWh:    round1(today * 0.7),
			WeekKWh:     round1(monthly / 4 * 0.8),
			MonthKWh:    round1(monthly * 0.8),
			LifetimeKWh: round1(monthly * monthsActive * 0.8),
		},
		GridInteraction: GridStats{
			ExportedKWh:        round1(monthly * 0.3),
			ImportedKWh:        round1(monthly * 0.1),
			SelfConsumptionPct: 70,
		},
		Financial: FinancialStats{
			SavingsCurrentMonthUSD:    round2(monthly * 0.8 * 0.15),
			EarningsCurrentMonthUSD:   round2(monthly * 0.3 * 0.12),
			LifetimeSavingsUSD:        round2(monthly * monthsActive * 0.8 * 0.15),
			ProjectedAnnualSavingsUSD: round2(monthly * 12 * 0.8 * 0.15),
		},
		Environmental: EnvironmentalStats{
			CarbonOffsetKg:           round1(monthly * monthsActive * 0.5),
			TreesEquivalent:          round1(monthly * monthsActive * 0.5 / 60),
			MilesNotDrivenEquivalent: round1(monthly * monthsActive * 2.5),
		},
	}
}

/* ------------------------------ tokenization --------------------------------- */

// NFTOpportunities lists the tokenization options the network offers.
func (a *Agent) NFTOpportunities(_ context.Context, _ string) []NFTOpportunity {
	return []NFTOpportunity{
		{
			ID:               "nft-1",
			Type:             token.KindRenewableCredit,
			Description:      "Tokenize your renewable energy production as carbon credits",
			ValuePerMWh:      25.00,
			MinimumAmountKWh: 100,
			Marketplace:      "GreenToken Exchange",
			Blockchain:       "Ethereum",
		},
		{
			ID:            "nft-2",
			Type:          token.KindGridFlexibility,
			Description:   "Tokenize your grid flexibility contributions",
			ValuePerEvent: 15.00,
			MinimumEvents: 5,
			Marketplace:   "FlexChain",
			Blockchain:    "Polygon",
		},
	}
}

// CreateEnergyNFT mints a token for produced energy. The tokenization order
// is registered on the network best-effort; issuance itself is simulated
// until a chain integration lands.
func (a *Agent) CreateEnergyNFT(ctx context.Context, userID, kind string, amountKWh float64) contract.NFTDetails {
	if _, err := a.client.CreateEnergyNFT(ctx, fallbackTokenProvider, amountKWh); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("tokenization order not registered on network")
	}

	details := a.tokens.Mint(userID, kind, amountKWh)
	a.appendState(ctx, userID, keyNFTs, details)
	return details
}

/* ---------------------------- automated trading ------------------------------- */

// EnableAutoTrading merges user overrides over the default policy and stores
// the result.
func (a *Agent) EnableAutoTrading(ctx context.Context, userID string, overrides map[string]any) AutoTradeStatus {
	settings := defaultAutoTradeSettings()
	for k, v := range overrides {
		settings[k] = v
	}
	a.save(ctx, userID, keyAutoTrading, settings)

	systemKW := session.Float(a.state(ctx, userID), "system_size_kw", defaultSystemKW)
	var benefitFactor float64
	switch session.String(settings, "ai_optimization_target", "financial") {
	case "financial":
		benefitFactor = 0.9
	case "environmental":
		benefitFactor = 0.7
	default:
		benefitFactor = 0.8
	}

	return AutoTradeStatus{
		Status:                     "enabled",
		ConfiguredAt:               a.now().Format(time.RFC3339),
		Settings:                   settings,
		EstimatedMonthlyBenefitUSD: round2(systemKW * 15 * benefitFactor),
	}
}

// ExecuteAutoTrading evaluates current conditions, asks the decision
// provider for an action, executes it, and appends the outcome to the user's
// trading history.
func (a *Agent) ExecuteAutoTrading(ctx context.Context, userID string) TradingRecord {
	state := a.state(ctx, userID)
	settings := a.settings(state)

	record := TradingRecord{
		Timestamp: a.now().Format(time.RFC3339),
		UserID:    userID,
	}

	if !settings.AutoParticipate {
		record.Action = contract.ActionNone
		record.Explanation = "Auto-trading is disabled"
		record.Result = contract.TradeResult{Status: "disabled", Message: "Auto-trading is disabled"}
		return record
	}

	hour := a.now().Hour()
	isPeak := hour >= peakHourStart && hour <= peakHourEnd
	price := offPeakKWh
	timeOfDay := "off-peak hours"
	if isPeak {
		price = peakPriceKWh
		timeOfDay = "peak hours"
	}
	forecast := a.forecast()

	production := a.EnergyProduction(ctx, userID, "", "")
	var currentProduction float64
	if len(production.Daily) > 0 {
		currentProduction = production.Daily[len(production.Daily)-1].KWh / 24
	}
	hasExcess := currentProduction > excessThresholdKWh

	decision, err := a.decider.Decide(ctx, contract.DecisionInput{
		TimeOfDay:       timeOfDay,
		IsPeakTime:      isPeak,
		HasExcess:       hasExcess,
		CurrentPrice:    price,
		Forecast:        forecast,
		MinSellPriceKWh: settings.MinSellPriceKWh,
		MaxBuyPriceKWh:  settings.MaxBuyPriceKWh,
		NeighborSharing: settings.NeighborSharing,
		PeakTimeSelling: settings.PeakTimeSelling,
		OffPeakBuying:   settings.OffPeakBuying,
		ReservePct:      settings.ReservePct,
		Target:          settings.Target,
	})
	if err != nil {
		a.logErr(err, userID, "execute_auto_trading")
		decision = contract.Decision{Action: contract.ActionNone, Explanation: err.Error()}
	}

	record.IsPeakTime = isPeak
	record.CurrentPrice = price
	record.CurrentProduction = currentProduction
	record.Action = decision.Action
	record.Explanation = decision.Explanation

	switch decision.Action {
	case contract.ActionSellToGrid:
		record.Result = a.ExecuteGridSale(ctx, userID, currentProduction*0.7)
	case contract.ActionStoreInBattery:
		record.Result = contract.TradeResult{
			Status:    "stored",
			AmountKWh: currentProduction * 0.8,
			Message:   "Energy stored in batteries",
		}
	case contract.ActionShareWithNeighbors:
		record.Result = a.ExecuteP2PSharing(ctx, userID, currentProduction*0.6)
	case contract.ActionBuyFromGrid:
		record.Result = a.ExecuteGridPurchase(ctx, userID, 5.0)
	default:
		record.Result = contract.TradeResult{Status: "no_action", Message: "Conditions not optimal for trading"}
	}

	a.appendState(ctx, userID, keyTradingHistory, record)
	return record
}

/* ----------------------------- trade execution -------------------------------- */

// ExecuteGridSale sells surplus energy to the grid operator.
func (a *Agent) ExecuteGridSale(ctx context.Context, userID string, amountKWh float64) contract.TradeResult {
	state := a.state(ctx, userID)
	settings := a.settings(state)
	price := math.Max(gridSaleFloorUSDPerKWh, settings.MinSellPriceKWh)

	providerID := fallbackGridProvider
	if opportunities := a.TradingOpportunities(ctx, userID); len(opportunities) > 0 {
		providerID = opportunities[0].ProviderID
	}

	txnID := a.executeTrade(ctx, userID, "grid", providerID, amountKWh, price, beckn.TradeSell)

	var nft *contract.NFTDetails
	if settings.TokenRewards {
		minted := a.CreateEnergyNFT(ctx, userID, token.KindRenewableCredit, amountKWh)
		nft = &minted
	}

	result := contract.TradeResult{
		Status:          "completed",
		TransactionType: "grid_sale",
		AmountKWh:       amountKWh,
		PricePerKWh:     price,
		TotalAmountUSD:  round2(amountKWh * price),
		TransactionID:   txnID,
		Timestamp:       a.now().Format(time.RFC3339),
		NFTDetails:      nft,
	}
	a.recordTransaction(ctx, userID, result, keyTotalEarnings)
	return result
}

// ExecuteGridPurchase buys energy from the grid operator.
func (a *Agent) ExecuteGridPurchase(ctx context.Context, userID string, amountKWh float64) contract.TradeResult {
	state := a.state(ctx, userID)
	settings := a.settings(state)
	price := math.Min(gridPurchaseCeilUSDPerKWh, settings.MaxBuyPriceKWh)

	providerID := fallbackGridProvider
	if opportunities := a.TradingOpportunities(ctx, userID); len(opportunities) > 0 {
		providerID = opportunities[0].ProviderID
	}

	txnID := a.executeTrade(ctx, userID, "buy", providerID, amountKWh, price, beckn.TradeBuy)

	result := contract.TradeResult{
		Status:          "completed",
		TransactionType: "grid_purchase",
		AmountKWh:       amountKWh,
		PricePerKWh:     price,
		TotalAmountUSD:  round2(amountKWh * price),
		TransactionID:   txnID,
		Timestamp:       a.now().Format(time.RFC3339),
	}
	a.recordTransaction(ctx, userID, result, keyTotalCosts)
	return result
}

// ExecuteP2PSharing shares surplus with a community energy group, settling
// between the grid sale and purchase prices.
func (a *Agent) ExecuteP2PSharing(ctx context.Context, userID string, amountKWh float64) contract.TradeResult {
	state := a.state(ctx, userID)
	settings := a.settings(state)
	price := math.Max(p2pFloorUSDPerKWh, settings.MinSellPriceKWh*p2pDiscountFactor)

	providerID := fallbackCommunityProvider
	recipient := fmt.Sprintf("neighbor-%d", a.randomInt(1000, 9999))
	for _, opp := range a.TradingOpportunities(ctx, userID) {
		if opp.Type == beckn.OpportunityP2PSharing {
			providerID = opp.ProviderID
			recipient = opp.ProviderName
			break
		}
	}

	txnID := a.executeTrade(ctx, userID, "p2p", providerID, amountKWh, price, beckn.TradeSell)

	var nft *contract.NFTDetails
	if settings.TokenRewards {
		minted := a.CreateEnergyNFT(ctx, userID, token.KindCommunityShare, amountKWh)
		nft = &minted
	}

	contribution := amountKWh / 10
	score := session.Float(state, keyCommunityScore, 0) + contribution
	a.save(ctx, userID, keyCommunityScore, score)

	result := contract.TradeResult{
		Status:                "completed",
		TransactionType:       "p2p_sharing",
		AmountKWh:             amountKWh,
		PricePerKWh:           price,
		TotalAmountUSD:        round2(amountKWh * price),
		CommunityContribution: round1(contribution),
		CommunityScore:        round1(score),
		TransactionID:         txnID,
		Timestamp:             a.now().Format(time.RFC3339),
		NFTDetails:            nft,
		Recipient:             recipient,
	}
	a.recordTransaction(ctx, userID, result, keyTotalEarnings)
	return result
}

/* --------------------------------- helpers ----------------------------------- */

// executeTrade places the trade on the network and resolves the transaction
// id: the network's order id when the call lands, otherwise a synthesized
// local id so bookkeeping still proceeds.
func (a *Agent) executeTrade(ctx context.Context, userID, idPrefix, providerID string, amountKWh, price float64, direction beckn.TradeDirection) string {
	txnID := fmt.Sprintf("%s-%s-%d", idPrefix, idHead(userID), a.now().Unix())
	resp, err := a.client.ExecuteEnergyTrade(ctx, providerID, amountKWh, price, direction)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("provider_id", providerID).Msg("energy trade call failed, recording locally")
		return txnID
	}
	if order := beckn.ExtractOrder(resp); order.ID != "" {
		return order.ID
	}
	return txnID
}

func (a *Agent) recordTransaction(ctx context.Context, userID string, result contract.TradeResult, totalKey string) {
	a.appendState(ctx, userID, keyTransactions, result)
	total := session.Float(a.state(ctx, userID), totalKey, 0)
	a.save(ctx, userID, totalKey, round2(total+result.TotalAmountUSD))
}

func defaultAutoTradeSettings() map[string]any {
	return map[string]any{
		"min_sell_price_kwh":       defaultMinSellPriceKWh,
		"max_buy_price_kwh":        defaultMaxBuyPriceKWh,
		"trading_hours":            "8:00-20:00",
		"reserve_capacity_pct":     20,
		"ai_optimization_target":   "financial",
		"auto_participation":       true,
		"neighbor_sharing_enabled": true,
		"token_rewards":            true,
		"peak_time_selling":        true,
		"off_peak_buying":          true,
	}
}

func (a *Agent) settings(state map[string]any) autoTradeSettings {
	raw := session.Map(state, keyAutoTrading)
	return autoTradeSettings{
		MinSellPriceKWh: session.Float(raw, "min_sell_price_kwh", defaultMinSellPriceKWh),
		MaxBuyPriceKWh:  session.Float(raw, "max_buy_price_kwh", defaultMaxBuyPriceKWh),
		ReservePct:      session.Float(raw, "reserve_capacity_pct", 20),
		Target:          session.String(raw, "ai_optimization_target", "financial"),
		AutoParticipate: session.Bool(raw, "auto_participation", false),
		NeighborSharing: session.Bool(raw, "neighbor_sharing_enabled", true),
		TokenRewards:    session.Bool(raw, "token_rewards", false),
		PeakTimeSelling: session.Bool(raw, "peak_time_selling", true),
		OffPeakBuying:   session.Bool(raw, "off_peak_buying", true),
	}
}

func (a *Agent) state(ctx context.Context, userID string) map[string]any {
	state, err := a.sessions.Get(ctx, userID)
	if err != nil {
		a.logErr(err, userID, "load_state")
		return map[string]any{}
	}
	return state
}

func (a *Agent) save(ctx context.Context, userID, key string, value any) {
	if err := a.sessions.Update(ctx, userID, map[string]any{key: value}); err != nil {
		a.logErr(err, userID, "save_state")
	}
}

// appendState appends to a list-valued state key via read-modify-write.
func (a *Agent) appendState(ctx context.Context, userID, key string, value any) {
	items := session.List(a.state(ctx, userID), key)
	a.save(ctx, userID, key, append(items, value))
}

func (a *Agent) logErr(err error, userID, op string) {
	log.Error().Err(err).Str("user_id", userID).Str("op", op).Msg("prosumer agent operation failed")
}

func (a *Agent) forecast() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rng.Float64() > 0.3 {
		return "sunny"
	}
	return "cloudy"
}

func (a *Agent) randomInt(lo, hi int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo + a.rng.Intn(hi-lo+1)
}

func idHead(userID string) string {
	if len(userID) < 4 {
		return userID
	}
	return userID[:4]
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

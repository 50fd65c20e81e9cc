package solar

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/wattbridge/beckn-energy-agent/agent/contract"
	"github.com/wattbridge/beckn-energy-agent/agent/session"
	"github.com/wattbridge/beckn-energy-agent/beckn"
)

// State keys owned by this agent. Each operation overwrites its own key.
const (
	keySubsidies          = "subsidies"
	keyInstallers         = "installers"
	keyProducts           = "products"
	keyProductSelection   = "product_selection"
	keyProductOrderInit   = "product_order_init"
	keyProductOrderFinal  = "product_order_confirmation"
	keySelection          = "selection"
	keyOrderInit          = "order_init"
	keyOrderConfirmation  = "order_confirmation"
	keyOrderStatus        = "order_status"
	keyRooftopAnalysis    = "rooftop_analysis"
	keyROIEstimate        = "roi_estimate"
	keyRetailTransaction  = "retail_txn"
	keyServiceTransaction = "service_txn"
)

// Fulfillment leg the retail network assigns to product deliveries.
const retailFulfillmentID = "618"

// ROI model constants: annual yield per installed kW and installed cost.
const (
	annualKWhPerKW       = 1500.0
	installedCostPerKW   = 3000.0
	defaultConsumption   = 350.0 // kWh per month
	defaultRateUSDPerKWh = 0.20
)

// RooftopAnalyzer estimates solar potential from a rooftop image. The
// default simulates; a vision-model integration replaces it.
type RooftopAnalyzer interface {
	Analyze(ctx context.Context, imageURL string) RooftopAnalysis
}

type RooftopAnalysis struct {
	SuitableAreaSqm     float64 `json:"suitable_area_sqm"`
	EstimatedCapacityKW float64 `json:"estimated_capacity_kw"`
	AnnualGenerationKWh float64 `json:"annual_generation_kwh"`
	Suitable            bool    `json:"suitable"`
	Confidence          float64 `json:"confidence"`
	RoofOrientation     string  `json:"roof_orientation"`
	ShadingFactor       float64 `json:"shading_factor"`
}

// Selection is the caller-facing projection of a select response.
type Selection struct {
	Provider *beckn.Provider `json:"provider"`
	Item     *beckn.Item     `json:"item"`
	Quote    *beckn.Quote    `json:"quote"`
}

type ROIEstimate struct {
	SystemSizeKW        float64 `json:"estimated_system_size_kw"`
	CostUSD             float64 `json:"estimated_cost_usd"`
	AnnualProductionKWh float64 `json:"estimated_annual_production_kwh"`
	AnnualSavingsUSD    float64 `json:"estimated_annual_savings_usd"`
	PaybackYears        float64 `json:"estimated_payback_years"`
	ROI20YearPercent    float64 `json:"estimated_roi_20_year_percent"`
}

// Agent guides a user from discovery (subsidies, installers, products)
// through purchase of a solar installation. Every operation degrades to an
// empty value on failure; the front-end treats empty as "no data available".
type Agent struct {
	client   *beckn.Client
	sessions session.Store
	analyzer RooftopAnalyzer
}

type Option func(*Agent)

func WithAnalyzer(a RooftopAnalyzer) Option {
	return func(ag *Agent) { ag.analyzer = a }
}

func New(client *beckn.Client, sessions session.Store, opts ...Option) *Agent {
	agent := &Agent{
		client:   client,
		sessions: sessions,
		analyzer: simulatedAnalyzer{},
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent
}

/* -------------------------------- discovery --------------------------------- */

// SearchSubsidies finds incentive schemes and stores them under "subsidies".
func (a *Agent) SearchSubsidies(ctx context.Context, userID string) []beckn.Subsidy {
	resp, err := a.client.SearchSubsidies(ctx, beckn.DefaultSubsidyQuery)
	if err != nil {
		a.logErr(err, userID, "search_subsidies")
		return []beckn.Subsidy{}
	}
	subsidies := beckn.ExtractSubsidies(resp)
	a.save(ctx, userID, keySubsidies, subsidies)
	return subsidies
}

// SearchInstallers finds installation service providers and stores them
// under "installers".
func (a *Agent) SearchInstallers(ctx context.Context, userID string) []beckn.Installer {
	resp, err := a.client.SearchSolarServices(ctx, beckn.DefaultServiceQuery)
	if err != nil {
		a.logErr(err, userID, "search_installers")
		return []beckn.Installer{}
	}
	installers := beckn.ExtractInstallers(resp)
	a.save(ctx, userID, keyInstallers, installers)
	return installers
}

// SearchSolarProducts finds panel products and stores them under "products".
func (a *Agent) SearchSolarProducts(ctx context.Context, userID string) []beckn.Product {
	resp, err := a.client.SearchSolarProducts(ctx, beckn.DefaultProductQuery)
	if err != nil {
		a.logErr(err, userID, "search_solar_products")
		return []beckn.Product{}
	}
	products := beckn.ExtractProducts(resp)
	a.save(ctx, userID, keyProducts, products)
	return products
}

/* ------------------------------ retail ordering ------------------------------ */

// SelectSolarProduct starts a retail order journey: it mints the journey
// transaction id carried through init and confirm.
func (a *Agent) SelectSolarProduct(ctx context.Context, userID, providerID, productID string) Selection {
	txn := beckn.NewTransactionID()
	a.save(ctx, userID, keyRetailTransaction, txn)

	resp, err := a.client.SelectItem(ctx, providerID, productID,
		beckn.WithDomain(beckn.DomainRetail), beckn.WithTransaction(txn))
	if err != nil {
		a.logErr(err, userID, "select_solar_product")
		return Selection{}
	}
	selection := selectionFromOrder(beckn.ExtractOrder(resp))
	a.save(ctx, userID, keyProductSelection, selection)
	return selection
}

// InitSolarProductOrder initializes the retail order under the journey
// transaction minted at select time.
func (a *Agent) InitSolarProductOrder(ctx context.Context, userID, providerID, productID string) beckn.Order {
	resp, err := a.client.InitOrder(ctx, providerID, productID,
		beckn.WithDomain(beckn.DomainRetail), beckn.WithTransaction(a.journeyTxn(ctx, userID, keyRetailTransaction)))
	if err != nil {
		a.logErr(err, userID, "init_solar_product_order")
		return beckn.Order{}
	}
	order := beckn.ExtractOrder(resp)
	a.save(ctx, userID, keyProductOrderInit, order)
	return order
}

// ConfirmSolarProductOrder confirms the retail order with the customer
// record attached to the network's retail fulfillment leg.
func (a *Agent) ConfirmSolarProductOrder(ctx context.Context, userID, providerID, productID string, customer contract.CustomerInfo) beckn.Order {
	resp, err := a.client.ConfirmOrder(ctx, providerID, productID, retailFulfillmentID, customer,
		beckn.WithDomain(beckn.DomainRetail), beckn.WithTransaction(a.journeyTxn(ctx, userID, keyRetailTransaction)))
	if err != nil {
		a.logErr(err, userID, "confirm_solar_product_order")
		return beckn.Order{}
	}
	order := beckn.ExtractOrder(resp)
	a.save(ctx, userID, keyProductOrderFinal, order)
	return order
}

/* ----------------------------- service ordering ------------------------------ */

// SelectService starts an installation-service order journey.
func (a *Agent) SelectService(ctx context.Context, userID, providerID, serviceID string) Selection {
	txn := beckn.NewTransactionID()
	a.save(ctx, userID, keyServiceTransaction, txn)

	resp, err := a.client.SelectItem(ctx, providerID, serviceID, beckn.WithTransaction(txn))
	if err != nil {
		a.logErr(err, userID, "select_service")
		return Selection{}
	}
	selection := selectionFromOrder(beckn.ExtractOrder(resp))
	a.save(ctx, userID, keySelection, selection)
	return selection
}

// InitializeOrder initializes the service order.
func (a *Agent) InitializeOrder(ctx context.Context, userID, providerID, serviceID string) beckn.Order {
	resp, err := a.client.InitOrder(ctx, providerID, serviceID,
		beckn.WithTransaction(a.journeyTxn(ctx, userID, keyServiceTransaction)))
	if err != nil {
		a.logErr(err, userID, "initialize_order")
		return beckn.Order{}
	}
	order := beckn.ExtractOrder(resp)
	a.save(ctx, userID, keyOrderInit, order)
	return order
}

// ConfirmOrder confirms the service order.
func (a *Agent) ConfirmOrder(ctx context.Context, userID, providerID, serviceID, fulfillmentID string, customer contract.CustomerInfo) beckn.Order {
	resp, err := a.client.ConfirmOrder(ctx, providerID, serviceID, fulfillmentID, customer,
		beckn.WithDomain(beckn.DomainSchemes), beckn.WithTransaction(a.journeyTxn(ctx, userID, keyServiceTransaction)))
	if err != nil {
		a.logErr(err, userID, "confirm_order")
		return beckn.Order{}
	}
	order := beckn.ExtractOrder(resp)
	a.save(ctx, userID, keyOrderConfirmation, order)
	return order
}

// CheckOrderStatus fetches the current order state.
func (a *Agent) CheckOrderStatus(ctx context.Context, userID, orderID string) beckn.Order {
	resp, err := a.client.CheckStatus(ctx, orderID)
	if err != nil {
		a.logErr(err, userID, "check_order_status")
		return beckn.Order{}
	}
	order := beckn.ExtractOrder(resp)
	a.save(ctx, userID, keyOrderStatus, order)
	return order
}

/* ------------------------------ estimation ----------------------------------- */

// AnalyzeRooftop estimates solar potential from a rooftop image.
func (a *Agent) AnalyzeRooftop(ctx context.Context, userID, imageURL string) RooftopAnalysis {
	analysis := a.analyzer.Analyze(ctx, imageURL)
	a.save(ctx, userID, keyRooftopAnalysis, analysis)
	return analysis
}

// EstimateROI computes a simple payback model from the user's recorded
// consumption and electricity rate.
func (a *Agent) EstimateROI(ctx context.Context, userID string) ROIEstimate {
	state := a.state(ctx, userID)
	consumption := session.Float(state, "electricity_consumption", defaultConsumption)
	rate := session.Float(state, "electricity_rate", defaultRateUSDPerKWh)

	systemSize := consumption * 12 / annualKWhPerKW
	systemCost := systemSize * installedCostPerKW
	annualProduction := systemSize * annualKWhPerKW
	annualSavings := annualProduction * rate
	paybackYears := systemCost / annualSavings
	lifetimeSavings := annualSavings * 20

	estimate := ROIEstimate{
		SystemSizeKW:        round1(systemSize),
		CostUSD:             round2(systemCost),
		AnnualProductionKWh: math.Round(annualProduction),
		AnnualSavingsUSD:    round2(annualSavings),
		PaybackYears:        round1(paybackYears),
		ROI20YearPercent:    round1((lifetimeSavings - systemCost) / systemCost * 100),
	}
	a.save(ctx, userID, keyROIEstimate, estimate)
	return estimate
}

// Summary renders the user's onboarding progress for display.
func (a *Agent) Summary(ctx context.Context, userID string) string {
	state := a.state(ctx, userID)

	address := session.String(state, "address", "Not provided")
	consumption := session.String(state, "electricity_consumption", "")
	if consumption == "" {
		if v, ok := state["electricity_consumption"].(float64); ok {
			consumption = fmt.Sprintf("%g", v)
		} else {
			consumption = "Not provided"
		}
	}

	roi := session.Map(state, keyROIEstimate)
	systemSize := stateNumber(roi, "estimated_system_size_kw")
	systemCost := stateNumber(roi, "estimated_cost_usd")
	annualSavings := stateNumber(roi, "estimated_annual_savings_usd")
	payback := stateNumber(roi, "estimated_payback_years")

	providerName := "Not selected"
	if sel := session.Map(state, keySelection); len(sel) > 0 {
		if prov, ok := sel["provider"].(map[string]any); ok {
			if desc, ok := prov["descriptor"].(map[string]any); ok {
				providerName = session.String(desc, "name", providerName)
			}
		}
	}

	return fmt.Sprintf(`Solar Onboarding Summary

Address: %s
Monthly Consumption: %s kWh

System Estimates:
- Recommended Size: %s kW
- Estimated Cost: $%s
- Annual Savings: $%s
- Payback Period: %s years

Selected Installer: %s

Your solar journey has begun! The next steps will involve scheduling an installation consultation and finalizing your system design.`,
		address, consumption, systemSize, systemCost, annualSavings, payback, providerName)
}

/* --------------------------------- helpers ----------------------------------- */

func selectionFromOrder(order beckn.Order) Selection {
	selection := Selection{Provider: order.Provider, Quote: order.Quote}
	if len(order.Items) > 0 {
		selection.Item = &order.Items[0]
	}
	return selection
}

// journeyTxn reuses the order-flow transaction id recorded at select time,
// minting a fresh one when the flow starts mid-journey.
func (a *Agent) journeyTxn(ctx context.Context, userID, key string) string {
	if txn := session.String(a.state(ctx, userID), key, ""); txn != "" {
		return txn
	}
	txn := beckn.NewTransactionID()
	a.save(ctx, userID, key, txn)
	return txn
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

func (a *Agent) logErr(err error, userID, op string) {
	log.Error().Err(err).Str("user_id", userID).Str("op", op).Msg("solar agent operation failed")
}

func stateNumber(data map[string]any, key string) string {
	if v, ok := data[key].(float64); ok {
		return fmt.Sprintf("%g", v)
	}
	return "Not calculated"
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

/* ---------------------------- simulated analyzer ------------------------------ */

// simulatedAnalyzer returns fixed survey numbers until a vision model is
// integrated.
type simulatedAnalyzer struct{}

func (simulatedAnalyzer) Analyze(context.Context, string) RooftopAnalysis {
	return RooftopAnalysis{
		SuitableAreaSqm:     25.5,
		EstimatedCapacityKW: 3.8,
		AnnualGenerationKWh: 5700,
		Suitable:            true,
		Confidence:          0.85,
		RoofOrientation:     "south",
		ShadingFactor:       0.12,
	}
}

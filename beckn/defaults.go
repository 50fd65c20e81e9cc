package beckn

// Default values substituted when upstream catalogs omit a field. Kept in one
// place so the fallback surface stays auditable.
const (
	DefaultCurrency = "USD"

	unknownProvider    = "Unknown Provider"
	unknownSubsidy     = "Unknown Subsidy"
	unknownService     = "Unknown Service"
	unknownProgram     = "Unknown Program"
	unknownProduct     = "Unknown Product"
	unknownOpportunity = "Unknown Opportunity"

	defaultPriceValue = "0"
)

// Discovery query defaults, mirroring what the upstream test network indexes.
const (
	DefaultSubsidyQuery = "incentive"
	DefaultProgramQuery = "Program"
	DefaultProductQuery = "solar"
	DefaultServiceQuery = "resi"
)

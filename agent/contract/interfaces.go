package contract

import (
	"context"
	"time"
)

// TelemetryProvider supplies production data for a user's solar system.
// The default implementation simulates; a real monitoring integration
// replaces it without touching the agents.
type TelemetryProvider interface {
	Production(userID string, from, to time.Time, systemSizeKW float64) ProductionReport
}

// TokenIssuer mints energy tokens. The default implementation simulates
// blockchain issuance.
type TokenIssuer interface {
	Mint(userID, kind string, amountKWh float64) NFTDetails
}

// DecisionProvider picks the next auto-trading action.
type DecisionProvider interface {
	Decide(ctx context.Context, in DecisionInput) (Decision, error)
}

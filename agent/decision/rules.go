package decision

import (
	"context"

	"github.com/wattbridge/beckn-energy-agent/agent/contract"
)

// RuleBased is the always-available fallback: sell excess during peak hours,
// buy during off-peak when short, otherwise do nothing.
type RuleBased struct{}

var _ contract.DecisionProvider = RuleBased{}

func (RuleBased) Decide(_ context.Context, in contract.DecisionInput) (contract.Decision, error) {
	switch {
	case in.HasExcess && in.IsPeakTime && in.PeakTimeSelling:
		return contract.Decision{
			Action:      contract.ActionSellToGrid,
			Explanation: "Selling excess energy during peak hours for maximum profit",
		}, nil
	case !in.IsPeakTime && !in.HasExcess && in.OffPeakBuying:
		return contract.Decision{
			Action:      contract.ActionBuyFromGrid,
			Explanation: "Buying energy during off-peak hours at lower prices",
		}, nil
	default:
		return contract.Decision{
			Action:      contract.ActionNone,
			Explanation: "Current conditions do not warrant trading actions",
		}, nil
	}
}

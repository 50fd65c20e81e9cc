package token

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wattbridge/beckn-energy-agent/agent/contract"
)

// Token kinds the network recognizes today.
const (
	KindRenewableCredit = "renewable_credit"
	KindGridFlexibility = "grid_flexibility"
	KindCommunityShare  = "community_share"
)

const (
	renewableCreditUSDPerKWh = 0.025 // $25 per MWh
	flexibilityEventUSD      = 15.0
)

// Simulated fabricates token records instead of hitting a chain; a real
// issuance integration replaces it behind contract.TokenIssuer.
type Simulated struct {
	now func() time.Time
}

var _ contract.TokenIssuer = (*Simulated)(nil)

func NewSimulated() *Simulated {
	return &Simulated{now: time.Now}
}

// NewSimulatedAt pins the clock, for tests.
func NewSimulatedAt(now func() time.Time) *Simulated {
	return &Simulated{now: now}
}

func (s *Simulated) Mint(userID, kind string, amountKWh float64) contract.NFTDetails {
	var (
		valueUSD    float64
		marketplace string
		blockchain  string
	)
	if kind == KindRenewableCredit {
		valueUSD = amountKWh * renewableCreditUSDPerKWh
		marketplace = "GreenToken Exchange"
		blockchain = "Ethereum"
	} else {
		valueUSD = flexibilityEventUSD
		marketplace = "FlexChain"
		blockchain = "Polygon"
	}

	now := s.now()
	tokenID := fmt.Sprintf("nft-%s-%s-%d", prefix(userID, 4), prefix(kind, 4), now.Unix())
	marketplaceHost := strings.ReplaceAll(strings.ToLower(marketplace), " ", "")

	return contract.NFTDetails{
		TokenID:         tokenID,
		Status:          "created",
		ValueUSD:        math.Round(valueUSD*100) / 100,
		Blockchain:      blockchain,
		ContractAddress: fmt.Sprintf("0x%sabcdef1234567890abcdef12345678", tokenID),
		CreationTime:    now.Format(time.RFC3339),
		Marketplace:     marketplace,
		MarketplaceURL:  fmt.Sprintf("https://%s.io/token/%s", marketplaceHost, tokenID),
		Type:            kind,
	}
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

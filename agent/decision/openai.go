package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/wattbridge/beckn-energy-agent/agent/contract"
)

type OpenAIConfig struct {
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
}

const decisionPrompt = `As an energy trading assistant, determine the optimal action based on:

Time of day: %s
Current energy price: $%.2f/kWh
Weather forecast: %s
User preferences:
  Optimization target: %s
  Min selling price: $%.2f/kWh
  Max buying price: $%.2f/kWh
  Neighbor sharing enabled: %t
  Reserve capacity: %.0f%%

Should we:
1. Sell excess energy to the grid
2. Store energy in batteries
3. Share energy with neighbors (P2P)
4. Buy energy from the grid

Return only the action number (1-4) and a brief explanation.`

// OpenAI asks a chat model for the trading action, degrading to the given
// fallback on any model or parse failure.
type OpenAI struct {
	client      openaisdk.Client
	model       string
	temperature float64
	timeout     time.Duration
	fallback    contract.DecisionProvider
}

var _ contract.DecisionProvider = (*OpenAI)(nil)

// NewOpenAI returns nil when no API key is configured; callers treat nil as
// "use the fallback directly".
func NewOpenAI(cfg OpenAIConfig, fallback contract.DecisionProvider) *OpenAI {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if fallback == nil {
		fallback = RuleBased{}
	}

	return &OpenAI{
		client:      openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		timeout:     timeout,
		fallback:    fallback,
	}
}

func (o *OpenAI) Decide(ctx context.Context, in contract.DecisionInput) (contract.Decision, error) {
	prompt := fmt.Sprintf(decisionPrompt,
		in.TimeOfDay, in.CurrentPrice, in.Forecast,
		in.Target, in.MinSellPriceKWh, in.MaxBuyPriceKWh,
		in.NeighborSharing, in.ReservePct)

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(callCtx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(o.model),
		Temperature: openaisdk.Float(o.temperature),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("model decision failed, using rule-based fallback")
		return o.fallback.Decide(ctx, in)
	}
	if len(resp.Choices) == 0 {
		return o.fallback.Decide(ctx, in)
	}

	content := resp.Choices[0].Message.Content
	action, ok := parseAction(content, in)
	if !ok {
		log.Warn().Str("content", truncate(content, 120)).Msg("unparseable model decision, using rule-based fallback")
		return o.fallback.Decide(ctx, in)
	}
	return contract.Decision{Action: action, Explanation: strings.TrimSpace(content)}, nil
}

// parseAction scans the start of the reply for an action number 1-4 and maps
// it onto the decision space, respecting the user's preference gates.
func parseAction(content string, in contract.DecisionInput) (contract.TradeAction, bool) {
	head := content
	if len(head) > 10 {
		head = head[:10]
	}
	for _, pick := range []struct {
		digit  string
		action contract.TradeAction
	}{
		{"1", contract.ActionSellToGrid},
		{"2", contract.ActionStoreInBattery},
		{"3", contract.ActionShareWithNeighbors},
		{"4", contract.ActionBuyFromGrid},
	} {
		if !strings.Contains(head, pick.digit) {
			continue
		}
		switch pick.action {
		case contract.ActionSellToGrid, contract.ActionStoreInBattery:
			if !in.HasExcess {
				return contract.ActionNone, true
			}
		case contract.ActionShareWithNeighbors:
			if !in.HasExcess || !in.NeighborSharing {
				return contract.ActionNone, true
			}
		case contract.ActionBuyFromGrid:
			if in.IsPeakTime || !in.OffPeakBuying {
				return contract.ActionNone, true
			}
		}
		return pick.action, true
	}
	return contract.ActionNone, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

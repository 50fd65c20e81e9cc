package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/wattbridge/beckn-energy-agent/agent/contract"
	"github.com/wattbridge/beckn-energy-agent/agent/prosumer"
	"github.com/wattbridge/beckn-energy-agent/agent/solar"
)

// Config holds the NATS request/reply settings.
type Config struct {
	URL            string        `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	Subject        string        `envconfig:"NATS_SUBJECT" default:"energy.agent.request"`
	Name           string        `envconfig:"NATS_NAME" default:"beckn-energy-agent"`
	RequestTimeout time.Duration `envconfig:"NATS_REQUEST_TIMEOUT" default:"30s"`
}

// Request is one chat-backend call into the agent layer. Args carries the
// op-specific parameters and is decoded per op.
type Request struct {
	UserID string          `json:"user_id"`
	Op     string          `json:"op"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"
)

// Server exposes the solar and prosumer agents over NATS request/reply.
// Requests for the same user are serialized so session read-modify-write
// cycles do not interleave.
type Server struct {
	conn     *nats.Conn
	config   Config
	solar    *solar.Agent
	prosumer *prosumer.Agent

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func NewServer(cfg Config, solarAgent *solar.Agent, prosumerAgent *prosumer.Agent) (*Server, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to nats")

	return &Server{
		conn:     conn,
		config:   cfg,
		solar:    solarAgent,
		prosumer: prosumerAgent,
		users:    make(map[string]*sync.Mutex),
	}, nil
}

func (s *Server) Start() error {
	if _, err := s.conn.Subscribe(s.config.Subject, s.handle); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.config.Subject, err)
	}
	log.Info().Str("subject", s.config.Subject).Msg("subscribed")
	return nil
}

func (s *Server) Close() error {
	if s.conn != nil {
		s.conn.Close()
		log.Info().Msg("nats connection closed")
	}
	return nil
}

func (s *Server) handle(msg *nats.Msg) {
	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Error().Err(err).Msg("malformed request")
		s.reply(msg, Response{Status: statusError, Error: "invalid request format"})
		return
	}
	if req.UserID == "" || req.Op == "" {
		s.reply(msg, Response{Status: statusError, Error: "user_id and op are required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
	defer cancel()

	lock := s.userLock(req.UserID)
	lock.Lock()
	data, err := s.dispatch(ctx, req)
	lock.Unlock()

	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Str("op", req.Op).Msg("request failed")
		s.reply(msg, Response{Status: statusError, Error: err.Error()})
		return
	}
	s.reply(msg, Response{Status: statusOK, Data: data})
}

func (s *Server) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.users[userID] = lock
	}
	return lock
}

func (s *Server) reply(msg *nats.Msg, resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("marshal response")
		return
	}
	if err := msg.Respond(payload); err != nil {
		log.Error().Err(err).Msg("send response")
	}
}

// Per-op argument shapes.
type orderArgs struct {
	ProviderID    string               `json:"provider_id"`
	ItemID        string               `json:"item_id"`
	FulfillmentID string               `json:"fulfillment_id"`
	OrderID       string               `json:"order_id"`
	Customer      contract.CustomerInfo `json:"customer"`
}

type imageArgs struct {
	ImageURL string `json:"image_url"`
}

type rangeArgs struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

type tradeArgs struct {
	AmountKWh float64 `json:"amount_kwh"`
	Kind      string  `json:"kind"`
}

type settingsArgs struct {
	Settings map[string]any `json:"settings"`
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	userID := req.UserID
	switch req.Op {
	case "solar.search_subsidies":
		return s.solar.SearchSubsidies(ctx, userID), nil
	case "solar.search_installers":
		return s.solar.SearchInstallers(ctx, userID), nil
	case "solar.search_products":
		return s.solar.SearchSolarProducts(ctx, userID), nil
	case "solar.select_product":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.SelectSolarProduct(ctx, userID, args.ProviderID, args.ItemID), nil
	case "solar.init_product_order":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.InitSolarProductOrder(ctx, userID, args.ProviderID, args.ItemID), nil
	case "solar.confirm_product_order":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.ConfirmSolarProductOrder(ctx, userID, args.ProviderID, args.ItemID, args.Customer), nil
	case "solar.select_service":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.SelectService(ctx, userID, args.ProviderID, args.ItemID), nil
	case "solar.init_order":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.InitializeOrder(ctx, userID, args.ProviderID, args.ItemID), nil
	case "solar.confirm_order":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.ConfirmOrder(ctx, userID, args.ProviderID, args.ItemID, args.FulfillmentID, args.Customer), nil
	case "solar.order_status":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.CheckOrderStatus(ctx, userID, args.OrderID), nil
	case "solar.analyze_rooftop":
		args, err := decode[imageArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.solar.AnalyzeRooftop(ctx, userID, args.ImageURL), nil
	case "solar.estimate_roi":
		return s.solar.EstimateROI(ctx, userID), nil
	case "solar.summary":
		return s.solar.Summary(ctx, userID), nil

	case "prosumer.search_programs":
		return s.prosumer.SearchEnergyPrograms(ctx, userID), nil
	case "prosumer.demand_response":
		return s.prosumer.SearchDemandResponsePrograms(ctx, userID), nil
	case "prosumer.enroll":
		args, err := decode[orderArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.prosumer.EnrollInProgram(ctx, userID, args.ProviderID, args.ItemID, args.FulfillmentID, args.Customer), nil
	case "prosumer.production":
		args, err := decode[rangeArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.prosumer.EnergyProduction(ctx, userID, args.DateFrom, args.DateTo), nil
	case "prosumer.trading_opportunities":
		return s.prosumer.TradingOpportunities(ctx, userID), nil
	case "prosumer.nft_opportunities":
		return s.prosumer.NFTOpportunities(ctx, userID), nil
	case "prosumer.energy_stats":
		return s.prosumer.EnergyStats(ctx, userID), nil
	case "prosumer.create_nft":
		args, err := decode[tradeArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.prosumer.CreateEnergyNFT(ctx, userID, args.Kind, args.AmountKWh), nil
	case "prosumer.enable_auto_trading":
		args, err := decode[settingsArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.prosumer.EnableAutoTrading(ctx, userID, args.Settings), nil
	case "prosumer.execute_auto_trading":
		return s.prosumer.ExecuteAutoTrading(ctx, userID), nil
	case "prosumer.grid_sale":
		args, err := decode[tradeArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.prosumer.ExecuteGridSale(ctx, userID, args.AmountKWh), nil
	case "prosumer.grid_purchase":
		args, err := decode[tradeArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.prosumer.ExecuteGridPurchase(ctx, userID, args.AmountKWh), nil
	case "prosumer.p2p_share":
		args, err := decode[tradeArgs](req.Args)
		if err != nil {
			return nil, err
		}
		return s.prosumer.ExecuteP2PSharing(ctx, userID, args.AmountKWh), nil
	}
	return nil, fmt.Errorf("unknown op %q", req.Op)
}

func decode[T any](raw json.RawMessage) (T, error) {
	var args T
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, fmt.Errorf("invalid args: %w", err)
	}
	return args, nil
}

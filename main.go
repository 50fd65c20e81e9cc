package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wattbridge/beckn-energy-agent/agent/contract"
	"github.com/wattbridge/beckn-energy-agent/agent/decision"
	"github.com/wattbridge/beckn-energy-agent/agent/prosumer"
	"github.com/wattbridge/beckn-energy-agent/agent/session"
	"github.com/wattbridge/beckn-energy-agent/agent/solar"
	"github.com/wattbridge/beckn-energy-agent/agent/telemetry"
	"github.com/wattbridge/beckn-energy-agent/agent/token"
	"github.com/wattbridge/beckn-energy-agent/beckn"
	configx "github.com/wattbridge/beckn-energy-agent/pkg/config"
	logx "github.com/wattbridge/beckn-energy-agent/pkg/logger"
	"github.com/wattbridge/beckn-energy-agent/transport"
)

type AppConfig struct {
	SessionBackend       string `envconfig:"SESSION_BACKEND" default:"file"`
	SessionRetentionDays int    `envconfig:"SESSION_RETENTION_DAYS" default:"30"`
}

func main() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	appCfg := configx.MustNew[AppConfig]("")

	sessions := newSessionStore(appCfg.SessionBackend)

	becknCfg := configx.MustNew[beckn.Config]("BECKN")
	becknCfg.Network = *configx.MustNew[beckn.NetworkConfig]("BECKN")
	client := beckn.MustNew(*becknCfg)

	production := telemetry.NewSimulated(time.Now().UnixNano())
	tokens := token.NewSimulated()
	decider := newDecider()

	solarAgent := solar.New(client, sessions)
	prosumerAgent := prosumer.New(client, sessions, production, tokens, decider)

	natsCfg := configx.MustNew[transport.Config]("")
	server, err := transport.NewServer(*natsCfg, solarAgent, prosumerAgent)
	if err != nil {
		log.Fatal().Err(err).Msg("start transport")
	}
	defer server.Close()

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}

	stop := make(chan struct{})
	go purgeLoop(sessions, appCfg.SessionRetentionDays, stop)

	log.Info().Str("session_backend", appCfg.SessionBackend).Msg("energy agent running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	close(stop)
	log.Info().Msg("shutting down")
}

func newSessionStore(backend string) session.Store {
	switch backend {
	case "redis":
		store, err := session.NewRedisStore(*configx.MustNew[session.RedisConfig]("SESSION_REDIS"))
		if err != nil {
			log.Fatal().Err(err).Msg("init redis session store")
		}
		return store
	case "postgres":
		store, err := session.NewPostgresStore(*configx.MustNew[session.PostgresConfig]("SESSION_POSTGRES"))
		if err != nil {
			log.Fatal().Err(err).Msg("init postgres session store")
		}
		return store
	default:
		store, err := session.NewFileStore(*configx.MustNew[session.FileConfig]("SESSION_FILE"))
		if err != nil {
			log.Fatal().Err(err).Msg("init file session store")
		}
		return store
	}
}

func newDecider() contract.DecisionProvider {
	cfg := configx.MustNew[decision.OpenAIConfig]("OPENAI")
	if provider := decision.NewOpenAI(*cfg, decision.RuleBased{}); provider != nil {
		log.Info().Str("model", cfg.Model).Msg("using llm trading decisions")
		return provider
	}
	log.Info().Msg("using rule-based trading decisions")
	return decision.RuleBased{}
}

// purgeLoop drops sessions idle longer than the retention window, once a day.
func purgeLoop(sessions session.Store, retentionDays int, stop <-chan struct{}) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			purged, err := sessions.PurgeOlderThan(ctx, retentionDays)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("session purge failed")
				continue
			}
			if purged > 0 {
				log.Info().Int("purged", purged).Msg("old sessions removed")
			}
		case <-stop:
			return
		}
	}
}

package app

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liorsolomon/ai-options-trading-bot/internal/broker"
	"github.com/liorsolomon/ai-options-trading-bot/internal/config"
	"github.com/liorsolomon/ai-options-trading-bot/internal/decision"
	"github.com/liorsolomon/ai-options-trading-bot/internal/evaluator"
	"github.com/liorsolomon/ai-options-trading-bot/internal/extract"
	"github.com/liorsolomon/ai-options-trading-bot/internal/ingest"
	"github.com/liorsolomon/ai-options-trading-bot/internal/lexicon"
	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/market"
	"github.com/liorsolomon/ai-options-trading-bot/internal/pkg/circuit"
	"github.com/liorsolomon/ai-options-trading-bot/internal/position"
	"github.com/liorsolomon/ai-options-trading-bot/internal/risk"
	"github.com/liorsolomon/ai-options-trading-bot/internal/store"
	apihttp "github.com/liorsolomon/ai-options-trading-bot/internal/transport/http"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// build wires every component from config. No goroutines start here;
// Run owns the lifecycle.
func build(cfg *config.Config) (*App, error) {
	table, lexWatcher, err := buildLexicon(cfg)
	if err != nil {
		return nil, err
	}

	queue := ingest.NewQueue()
	loc, err := time.LoadLocation(cfg.Inbox.Timezone)
	if err != nil {
		return nil, fmt.Errorf("inbox.timezone: %w", err)
	}
	parser := &ingest.ChatParser{SourceTag: cfg.Inbox.SourceTag, Location: loc}

	chatSource := ingest.NewChatSource(extract.New(table), cfg.Pipeline.AggregationWindow())
	subSource := ingest.NewSubmissionSource()
	if lexWatcher != nil {
		lexWatcher.Subscribe(func(snap lexicon.Snapshot) {
			chatSource.SetExtractor(extract.New(snap.Table))
		})
	}

	prices := market.NewSimSource()
	scanner := market.NewTechnicalScanner(prices, cfg.Market.WatchSymbols)

	eval, breaker := buildEvaluator(cfg)

	gate := risk.NewGate(risk.Config{
		ExposureCeilingFraction: decimal.NewFromFloat(cfg.Risk.ExposureCeilingFraction),
		PerTradeCapFraction:     decimal.NewFromFloat(cfg.Risk.PerTradeCapFraction),
		DailyLossLimitFraction:  decimal.NewFromFloat(cfg.Risk.DailyLossLimitFraction),
		CorrelationLimit:        cfg.Risk.CorrelationLimit,
		Groups:                  cfg.Risk.Groups,
		GroupRho:                cfg.Risk.GroupRho,
		Toggles: risk.Toggles{
			Exposure:    cfg.Risk.EnableExposure,
			PerTradeCap: cfg.Risk.EnablePerTradeCap,
			DailyLoss:   cfg.Risk.EnableDailyLoss,
			Correlation: cfg.Risk.EnableCorrelation,
		},
	}, decimal.NewFromFloat(cfg.Risk.InitialEquityUSD))

	exec := broker.NewPaper(prices, time.Duration(cfg.Broker.LatencyMillis)*time.Millisecond)
	tracker := position.NewTracker(position.Config{
		StopLossFraction:   decimal.NewFromFloat(cfg.Position.StopLossFraction),
		TakeProfitFraction: decimal.NewFromFloat(cfg.Position.TakeProfitFraction),
		MaxHold:            cfg.Position.MaxHold(),
		FillTimeout:        time.Duration(cfg.Position.FillTimeoutSeconds) * time.Second,
	}, exec, prices, gate)

	audit, err := store.Open(cfg.Store.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	events, err := store.OpenEventLog(cfg.Store.EventLogPath)
	if err != nil {
		audit.Close()
		return nil, fmt.Errorf("open event log: %w", err)
	}
	tracker.SetTransitionHook(func(p types.Position) {
		if err := audit.AppendPositionEvent(p); err != nil {
			logger.Warnf("audit: position event: %v", err)
		}
	})

	engine := decision.NewEngine(decision.Config{
		ConfidenceThreshold:  cfg.Pipeline.ConfidenceThreshold,
		RiskFraction:         decimal.NewFromFloat(cfg.Pipeline.RiskFraction),
		StopDistanceFraction: decimal.NewFromFloat(cfg.Pipeline.StopDistanceFraction),
		EvaluatorTimeout:     time.Duration(cfg.Evaluator.TimeoutSeconds) * time.Second,
	}, prices, eval)

	var inbox *ingest.Inbox
	if cfg.Inbox.Enabled {
		inbox = ingest.NewInbox(cfg.Inbox.Dir, queue, parser)
	}

	httpSrv, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Queue:   queue,
		Parser:  parser,
		Tracker: tracker,
		Gate:    gate,
		Health: func() map[string]any {
			out := map[string]any{}
			if breaker != nil {
				out["evaluator_breaker"] = breaker.State().String()
			}
			return out
		},
	})
	if err != nil {
		audit.Close()
		events.Close()
		return nil, err
	}

	return &App{
		cfg:        cfg,
		queue:      queue,
		chatSource: chatSource,
		subSource:  subSource,
		scanner:    scanner,
		engine:     engine,
		gate:       gate,
		tracker:    tracker,
		audit:      audit,
		events:     events,
		httpSrv:    httpSrv,
		inbox:      inbox,
	}, nil
}

func buildLexicon(cfg *config.Config) (*lexicon.Table, *lexicon.Watcher, error) {
	if cfg.Pipeline.LexiconPath == "" {
		return lexicon.Default(), nil, nil
	}
	watcher, err := lexicon.NewWatcher(cfg.Pipeline.LexiconPath)
	if err != nil {
		return nil, nil, fmt.Errorf("lexicon: %w", err)
	}
	return watcher.Table(), watcher, nil
}

func buildEvaluator(cfg *config.Config) (evaluator.Evaluator, *circuit.Breaker) {
	if cfg.Evaluator.Mode != "openai" {
		return evaluator.NewRuleBased(), nil
	}
	breaker := circuit.NewBreaker("evaluator",
		cfg.Evaluator.BreakerThreshold,
		time.Duration(cfg.Evaluator.BreakerCooldownSeconds)*time.Second)
	client := &evaluator.ChatClient{
		BaseURL:      cfg.Evaluator.APIURL,
		APIKey:       cfg.Evaluator.APIKey,
		Model:        cfg.Evaluator.Model,
		Timeout:      time.Duration(cfg.Evaluator.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.Evaluator.MaxRetries,
		ExtraHeaders: cfg.Evaluator.Headers,
	}
	return evaluator.NewRemote(client, breaker), breaker
}

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/happyorsaad/dental-assistant-bot/agent/activity"
	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/agent/dedupe"
	"github.com/happyorsaad/dental-assistant-bot/agent/dispatch"
	"github.com/happyorsaad/dental-assistant-bot/agent/greeting"
	"github.com/happyorsaad/dental-assistant-bot/agent/intent"
	"github.com/happyorsaad/dental-assistant-bot/agent/knowledge"
	"github.com/happyorsaad/dental-assistant-bot/agent/llm"
	"github.com/happyorsaad/dental-assistant-bot/agent/outbound"
	"github.com/happyorsaad/dental-assistant-bot/agent/prompt"
	"github.com/happyorsaad/dental-assistant-bot/agent/scheduler"
	configx "github.com/happyorsaad/dental-assistant-bot/pkg/config"
	_ "github.com/happyorsaad/dental-assistant-bot/pkg/logger/autoload"
	qstashx "github.com/happyorsaad/dental-assistant-bot/pkg/qstash"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx := context.Background()

	llmCfg := configx.MustNew[llm.Config]("LLM")
	classifierCfg := configx.MustNew[intent.Config]("CLASSIFIER")
	knowledgeCfg := configx.MustNew[knowledge.Config]("KNOWLEDGE")
	schedulerCfg := configx.MustNew[scheduler.Config]("SCHEDULER")
	outboundCfg := configx.MustNew[outbound.Config]("OUTBOUND")
	dedupeCfg := configx.MustNew[dedupe.Config]("DEDUPE")
	serverCfg := configx.MustNew[activity.ServerConfig]("SERVER")

	prompts := prompt.LoadPromptSet()
	var closers []io.Closer

	classifier, err := buildClassifier(ctx, *classifierCfg, *llmCfg, prompts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize intent classifier")
	}

	answers, err := buildAnswerFinder(*knowledgeCfg, *llmCfg, prompts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize knowledge client")
	}

	sched, schedCloser, err := buildScheduler(ctx, *schedulerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scheduler")
	}
	if schedCloser != nil {
		closers = append(closers, schedCloser)
	}

	engine, err := dispatch.New(answers, classifier, sched)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dispatch engine")
	}

	seen, seenCloser, err := buildDedupe(ctx, *dedupeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dedupe store")
	}
	if seenCloser != nil {
		closers = append(closers, seenCloser)
	}

	publisher, pubCloser, err := buildPublisher(*outboundCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize outbound publisher")
	}
	if pubCloser != nil {
		closers = append(closers, pubCloser)
	}

	router, err := activity.NewRouter(engine, greeting.New(),
		activity.WithDedupe(seen),
		activity.WithPublisher(publisher),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize activity router")
	}

	app := activity.NewServer(router, *serverCfg)

	go func() {
		log.Info().Str("addr", serverCfg.Addr).Msg("listening for activities")
		if err := app.Listen(serverCfg.Addr); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func buildClassifier(
	ctx context.Context,
	cfg intent.Config,
	llmCfg llm.Config,
	prompts prompt.PromptSet,
) (contractx.IntentClassifier, error) {
	switch provider(cfg.Provider) {
	case intent.ProviderLLM:
		if err := llmCfg.RequireModel(); err != nil {
			return nil, err
		}
		orCfg := llmCfg.OpenRouterFor(llm.RoleClassifier)
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, err
		}
		return intent.NewLLMClassifier(ctx, chatModel, prompts.Classifier)
	default:
		return intent.NewLUISClient(cfg)
	}
}

func buildAnswerFinder(
	cfg knowledge.Config,
	llmCfg llm.Config,
	prompts prompt.PromptSet,
) (contractx.AnswerFinder, error) {
	switch provider(cfg.Provider) {
	case knowledge.ProviderLLM:
		if err := llmCfg.RequireModel(); err != nil {
			return nil, err
		}
		return knowledge.NewLLMClient(llmCfg.OpenRouterFor(llm.RoleKnowledge), prompts.Knowledge, cfg.ScoreThreshold)
	default:
		return knowledge.NewQnAMakerClient(cfg)
	}
}

func buildScheduler(ctx context.Context, cfg scheduler.Config) (contractx.Scheduler, io.Closer, error) {
	switch provider(cfg.Provider) {
	case scheduler.ProviderPostgres, scheduler.ProviderSQLite:
		store, err := openStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := store.CreateSchema(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store, nil
	default:
		client, err := scheduler.NewHTTPClient(cfg)
		return client, nil, err
	}
}

func openStore(cfg scheduler.Config) (*scheduler.Store, error) {
	if provider(cfg.Provider) == scheduler.ProviderPostgres {
		return scheduler.NewStore(scheduler.NewPostgresDB(cfg.DatabaseDSN))
	}
	db, err := scheduler.NewSQLiteDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return scheduler.NewStore(db)
}

func buildDedupe(ctx context.Context, cfg dedupe.Config) (dedupe.Store, io.Closer, error) {
	switch provider(cfg.Provider) {
	case dedupe.ProviderUpstash:
		store, err := dedupe.NewUpstashStore(cfg)
		return store, nil, err
	case dedupe.ProviderRedis:
		store, err := dedupe.NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return dedupe.Nop{}, nil, nil
	}
}

func buildPublisher(cfg outbound.Config) (outbound.Publisher, io.Closer, error) {
	switch provider(cfg.Mode) {
	case outbound.ModeQStash:
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		client, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return nil, nil, err
		}
		pub, err := outbound.NewQStashPublisher(client, cfg.Destination)
		return pub, nil, err
	case outbound.ModeNATS:
		pub, err := outbound.NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix)
		if err != nil {
			return nil, nil, err
		}
		return pub, closerFunc(pub.Close), nil
	default:
		return outbound.Discard{}, nil, nil
	}
}

func provider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kazaneza/openchat/internal/config"
	"github.com/kazaneza/openchat/internal/core/ports"
	"github.com/kazaneza/openchat/internal/core/usecase"
	"github.com/kazaneza/openchat/internal/infrastructure/index/memory"
	"github.com/kazaneza/openchat/internal/infrastructure/index/qdrant"
	"github.com/kazaneza/openchat/internal/infrastructure/llm/ollama"
	"github.com/kazaneza/openchat/internal/infrastructure/prompts"
	"github.com/kazaneza/openchat/internal/infrastructure/queue/nats"
	"github.com/kazaneza/openchat/internal/infrastructure/repository/postgres"
	"github.com/kazaneza/openchat/internal/infrastructure/resilience"
)

type App struct {
	Config  config.Config
	Prompts prompts.Library

	Queue         *nats.Queue
	Conversations ports.ConversationStore

	AnswerUC   ports.AnswerService
	SearchUC   ports.PassageSearcher
	TurnsUC    ports.ConversationReader
	FeedbackUC ports.FeedbackService
	ProcessUC  ports.FeedbackProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	conversations := postgres.NewConversationRepository(db)
	feedbackStore := postgres.NewFeedbackRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	library, err := prompts.Load(cfg.PromptPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}

	ollamaClient := ollama.New(
		cfg.OllamaURL,
		cfg.OllamaGenModel,
		cfg.OllamaEmbedModel,
		time.Duration(cfg.OllamaTimeoutSeconds)*time.Second,
	)
	embedder := ollama.NewEmbedder(ollamaClient, executor)

	// Generations are too expensive to retry three times; one retry only.
	completionCfg := resilience.DefaultConfig()
	completionCfg.RetryMaxAttempts = 2
	completer := ollama.NewCompleter(ollamaClient, resilience.NewExecutor(completionCfg))

	index, err := newPassageIndex(cfg)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	retrievalUC := usecase.NewRetrievalUseCase(embedder, index)
	contextUC := usecase.NewContextUseCase(conversations, completer)
	answerUC := usecase.NewAnswerUseCase(retrievalUC, contextUC, completer, conversations, library.Persona(cfg.PromptPersona))
	feedbackUC := usecase.NewFeedbackUseCase(queue, feedbackStore)
	processUC := usecase.NewProcessFeedbackUseCase(feedbackStore)

	return &App{
		Config:  cfg,
		Prompts: library,

		Queue:         queue,
		Conversations: conversations,

		AnswerUC:   answerUC,
		SearchUC:   retrievalUC,
		TurnsUC:    answerUC,
		FeedbackUC: feedbackUC,
		ProcessUC:  processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newPassageIndex(cfg config.Config) (ports.PassageIndex, error) {
	switch cfg.IndexBackend {
	case "memory":
		index := memory.New()
		if cfg.MemoryIndexPath != "" {
			if err := index.LoadFile(cfg.MemoryIndexPath); err != nil {
				return nil, fmt.Errorf("load memory index: %w", err)
			}
		}
		return index, nil
	case "", "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), nil
	default:
		return nil, fmt.Errorf("unknown index backend: %q", cfg.IndexBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/normanhq/norman/internal/config"
	"github.com/normanhq/norman/internal/core/ports"
	"github.com/normanhq/norman/internal/core/usecase"
	"github.com/normanhq/norman/internal/infrastructure/cache"
	"github.com/normanhq/norman/internal/infrastructure/chunking"
	"github.com/normanhq/norman/internal/infrastructure/graph/neo4j"
	"github.com/normanhq/norman/internal/infrastructure/lawxml"
	"github.com/normanhq/norman/internal/infrastructure/llm/ollama"
	"github.com/normanhq/norman/internal/infrastructure/queue/nats"
	"github.com/normanhq/norman/internal/infrastructure/repository/postgres"
	"github.com/normanhq/norman/internal/infrastructure/resilience"
	"github.com/normanhq/norman/internal/infrastructure/storage/localfs"
	"github.com/normanhq/norman/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Laws       ports.LawReader
	QueryUC    ports.LegalQueryService
	RegisterUC ports.LawRegistrar
	ProcessUC  ports.LawProcessor

	HealthChecks map[string]func(context.Context) error

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewLawRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	graphStore, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return nil, fmt.Errorf("init graph store: %w", err)
	}

	llm := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(llm)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	categoryTable, err := config.LoadCategories(cfg.CategoriesPath)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	pcfg := pipelineConfig(cfg)
	expansionCache := cache.NewExpansionCache(time.Duration(cfg.ExpansionCacheTTLSec) * time.Second)
	gradeLimiter := rate.NewLimiter(rate.Limit(cfg.RAGGradesPerSecond), cfg.RAGGradeConcurrency)

	expander := usecase.NewQueryExpander(llm, expansionCache, pcfg)
	retriever := usecase.NewHybridRetriever(embedder, vectorDB, pcfg)
	grader := usecase.NewRelevanceGrader(llm, gradeLimiter, pcfg)
	reranker := usecase.NewReranker(llm, pcfg)
	assembler := usecase.NewAnswerAssembler(llm)
	augmenter := usecase.NewStatuteGraphAugmenter(usecase.NewQueryRouter(), graphStore, pcfg)
	controller := usecase.NewCorrectionController(expander, retriever, grader, reranker, assembler, llm, augmenter, pcfg)
	detector := usecase.NewCategoryDetector(categoryTable)

	answerUC := usecase.NewAnswerUseCase(controller, expander, retriever, detector, pcfg)
	registerUC := usecase.NewRegisterLawUseCase(repo, storage, queue)

	parser := lawxml.New(storage)
	chunker := chunking.NewSplitter(cfg.MaxParagraphRunes)
	processUC := usecase.NewProcessLawUseCase(repo, parser, chunker, embedder, vectorDB, graphStore)

	return &App{
		Config: cfg,

		Queue:      queue,
		Laws:       repo,
		QueryUC:    answerUC,
		RegisterUC: registerUC,
		ProcessUC:  processUC,

		HealthChecks: map[string]func(context.Context) error{
			"postgres": db.PingContext,
			"nats":     queue.Ping,
			"neo4j":    graphStore.Ping,
		},

		closeFn: func() {
			queue.Close()
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = graphStore.Close(closeCtx)
			_ = db.Close()
		},
	}, nil
}

func pipelineConfig(cfg config.Config) usecase.PipelineConfig {
	return usecase.PipelineConfig{
		VariantCount:     cfg.RAGVariantCount,
		RetrieveLimit:    cfg.RAGRetrieveLimit,
		FusionK:          cfg.RAGFusionRRFK,
		MinScore:         cfg.RAGMinScore,
		FallbackTopN:     cfg.RAGFallbackTopN,
		GradeTopN:        cfg.RAGGradeTopN,
		GradeConcurrency: cfg.RAGGradeConcurrency,
		RerankTopN:       cfg.RAGRerankTopN,
		GraphWeight:      cfg.RAGGraphWeight,
		GraphDepth:       cfg.RAGGraphDepth,
		RequestTimeout:   time.Duration(cfg.RAGTimeoutSeconds) * time.Second,
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

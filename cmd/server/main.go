// Package main provides the campus chatbot server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/campusbot/campus-chatbot-go/internal/artifact"
	"github.com/campusbot/campus-chatbot-go/internal/buildinfo"
	"github.com/campusbot/campus-chatbot-go/internal/classifier"
	"github.com/campusbot/campus-chatbot-go/internal/config"
	"github.com/campusbot/campus-chatbot-go/internal/dialog"
	"github.com/campusbot/campus-chatbot-go/internal/extract"
	"github.com/campusbot/campus-chatbot-go/internal/genai"
	"github.com/campusbot/campus-chatbot-go/internal/knowledge"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
	"github.com/campusbot/campus-chatbot-go/internal/nlp"
	"github.com/campusbot/campus-chatbot-go/internal/rag"
	"github.com/campusbot/campus-chatbot-go/internal/rules"
	"github.com/campusbot/campus-chatbot-go/internal/sentry"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
	"github.com/campusbot/campus-chatbot-go/internal/ticket"
	"github.com/campusbot/campus-chatbot-go/internal/translate"
	"github.com/campusbot/campus-chatbot-go/internal/voice"
	"github.com/campusbot/campus-chatbot-go/internal/web"
)

// artifactKey is the object key the classifier snapshot is stored under.
const artifactKey = "classifier.json"

const sessionTTL = 30 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewWithOptions(logger.Options{
		Level:            cfg.LogLevel,
		BetterStackToken: cfg.BetterStackToken,
	})
	log.Info("Starting campus chatbot server")

	// Initialize error tracking
	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.Environment,
		Release:     buildinfo.Version,
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize error tracking")
	} else if sentry.IsEnabled() {
		log.Info("Error tracking initialized")
		defer sentry.Flush(2 * time.Second)
	}

	// Connect to database
	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	// Create Prometheus registry with runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())
	m := metrics.New(registry)
	log.Info("Metrics initialized")

	// Load the knowledge documents in parallel
	var (
		base  *knowledge.Base
		table *knowledge.RuleTable
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		base, err = knowledge.LoadBase(cfg.KnowledgeBasePath)
		return err
	})
	g.Go(func() error {
		var err error
		table, err = knowledge.LoadRuleTable(cfg.RuleTablePath)
		return err
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Failed to load knowledge documents")
		os.Exit(1)
	}
	log.WithFields(map[string]any{
		"intents": base.Len(),
		"rules":   table.Len(),
	}).Info("Knowledge documents loaded")

	pre, err := nlp.NewPreprocessor()
	if err != nil {
		log.WithError(err).Error("Failed to create preprocessor")
		os.Exit(1)
	}

	// Artifact snapshot store (optional). A stored snapshot lets a fresh
	// container skip training when the knowledge base has not changed.
	var snapshots *artifact.Store
	if cfg.HasArtifactStore() {
		snapshots, err = artifact.New(context.Background(), artifact.Config{
			Endpoint:    cfg.R2Endpoint,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretKey,
			BucketName:  cfg.R2Bucket,
		}, log)
		if err != nil {
			log.WithError(err).Warn("Failed to create artifact store, snapshots disabled")
			snapshots = nil
		}
	}
	if snapshots != nil {
		if _, err := os.Stat(cfg.ModelArtifactPath()); os.IsNotExist(err) {
			if err := snapshots.Download(context.Background(), artifactKey, cfg.ModelArtifactPath()); err != nil {
				log.WithError(err).Debug("No usable classifier snapshot downloaded")
			} else {
				log.Info("Classifier snapshot downloaded")
			}
		}
	}

	// Load or train the intent classifier
	examples := trainingExamples(base, pre)
	if err := classifier.ValidateCorpus(examples); err != nil {
		log.WithError(err).Error("Knowledge base has no usable training patterns")
		os.Exit(1)
	}
	trainStart := time.Now()
	model, trained, err := classifier.LoadOrTrain(cfg.ModelArtifactPath(), base.Hash(), examples, classifier.TrainOptions{
		Epochs:       cfg.TrainEpochs,
		LearningRate: cfg.TrainLearningRate,
		Threshold:    cfg.ConfidenceThreshold,
	})
	if err != nil {
		log.WithError(err).Warn("Classifier artifact could not be persisted")
	}
	if trained {
		m.RecordTraining(time.Since(trainStart).Seconds())
		log.WithField("examples", len(examples)).Info("Classifier trained")
		if snapshots != nil {
			if err := snapshots.Upload(context.Background(), cfg.ModelArtifactPath(), artifactKey); err != nil {
				log.WithError(err).Warn("Failed to upload classifier snapshot")
			} else {
				log.Info("Classifier snapshot uploaded")
			}
		}
	} else {
		log.Info("Classifier loaded from artifact")
	}

	// BM25 index over the knowledge base for fallback context retrieval
	ragIndex := rag.NewIndex(log)
	if err := ragIndex.Initialize(base); err != nil {
		log.WithError(err).Warn("Failed to initialize retrieval index, fallback context disabled")
		ragIndex = nil
	} else {
		log.WithField("doc_count", ragIndex.Count()).Info("Retrieval index initialized")
	}

	// Generative fallback (optional, requires an LLM API key)
	var fallback dialog.FallbackResponder
	llm, err := genai.NewFromConfig(context.Background(), cfg, log, m)
	if err != nil {
		log.WithError(err).Warn("Failed to create generative fallback")
	} else if llm != nil {
		fallback = llm
		defer func() { _ = llm.Close() }()
		log.WithField("provider", llm.Provider().String()).Info("Generative fallback enabled")
	} else {
		log.Info("No LLM API key configured, generative fallback disabled")
	}

	// Ticketing (optional, requires SES configuration)
	var ticketService *ticket.Service
	if cfg.HasTicketing() {
		mailer, err := ticket.NewSESMailer(context.Background(), cfg.AWSRegion, cfg.TicketSender, cfg.TicketRecipient, log, m)
		if err != nil {
			log.WithError(err).Warn("Failed to create ticket mailer, tickets will queue undelivered")
			ticketService = ticket.NewService(db, nil, log)
		} else {
			ticketService = ticket.NewService(db, mailer, log)
			log.Info("Ticket mailer enabled")
		}
	} else {
		ticketService = ticket.NewService(db, nil, log)
		log.Info("Ticketing not configured, tickets will be stored only")
	}

	// Translation and speech synthesis for the language round-trip
	translator := translate.New(log, m, translate.WithTimeout(cfg.TranslateTimeout))
	synthesizer, err := voice.New(cfg.AudioDir(), log, m, voice.WithTimeout(cfg.TTSTimeout))
	if err != nil {
		log.WithError(err).Warn("Failed to create speech synthesizer, audio replies disabled")
		synthesizer = nil
	}

	sessions := dialog.NewSessionManager(sessionTTL, m)

	var retriever dialog.ContextRetriever
	if ragIndex != nil {
		retriever = ragIndex
	}
	orchestrator := dialog.New(dialog.Options{
		Base:         base,
		Preprocessor: pre,
		Model:        model,
		Extractor:    extract.New(table),
		Engine:       rules.NewEngine(table),
		Retriever:    retriever,
		Fallback:     fallback,
		Feedback:     db,
		Ticketing:    ticketService,
		FallbackTopK: cfg.FallbackTopK,
		Logger:       log,
		Metrics:      m,
	})
	log.Info("Dialogue orchestrator created")

	handler := web.NewHandler(web.HandlerConfig{
		Sessions:    sessions,
		Resolver:    orchestrator,
		Translator:  translator,
		Synthesizer: voiceOrNil(synthesizer),
		DB:          db,
		PivotLang:   cfg.PivotLanguage,
		Logger:      log,
		Metrics:     m,
	})

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(errorTrackingMiddleware())

	setupRoutes(router, handler, db, model, sessions, registry, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start background maintenance goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer recoverJob(log, "session reaper")
		reapSessions(ctx, sessions, log)
	}()

	if synthesizer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverJob(log, "audio cleanup")
			cleanAudioCache(ctx, synthesizer, cfg.AudioCacheTTL, log)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer recoverJob(log, "ticket retry")
		retryTickets(ctx, ticketService, log)
	}()

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Failed to start server")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	goDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(goDone)
	}()
	select {
	case <-goDone:
		log.Info("All background goroutines stopped")
	case <-time.After(5 * time.Second):
		log.Warn("Timeout waiting for goroutines to stop")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	if err := db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}

	log.Info("Server stopped")
}

// trainingExamples normalizes every stored pattern into a labeled training
// document.
func trainingExamples(base *knowledge.Base, pre *nlp.Preprocessor) []classifier.Example {
	var examples []classifier.Example
	for _, intent := range base.Intents() {
		for _, pattern := range intent.Patterns {
			examples = append(examples, classifier.Example{
				Text: pre.NormalizeJoined(pattern),
				Tag:  intent.Tag,
			})
		}
	}
	return examples
}

// voiceOrNil keeps a typed nil *GoogleSynthesizer out of the Synthesizer
// interface value.
func voiceOrNil(s *voice.GoogleSynthesizer) voice.Synthesizer {
	if s == nil {
		return nil
	}
	return s
}

func recoverJob(log *logger.Logger, name string) {
	if r := recover(); r != nil {
		log.WithField("panic", r).WithField("job", name).Error("Panic in background job")
	}
}

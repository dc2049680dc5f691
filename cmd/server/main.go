// Server runs the assessment HTTP API: question allocation, the Maya
// conversation, scoring handoff, and profile/question management.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	allocationhandler "maya-assessment/backend/internal/allocation/handler"
	allocationrepo "maya-assessment/backend/internal/allocation/repository"
	allocationservice "maya-assessment/backend/internal/allocation/service"
	"maya-assessment/backend/internal/config"
	"maya-assessment/backend/internal/conversation"
	conversationhandler "maya-assessment/backend/internal/conversation/handler"
	conversationservice "maya-assessment/backend/internal/conversation/service"
	"maya-assessment/backend/internal/db"
	"maya-assessment/backend/internal/entitlement"
	healthhandler "maya-assessment/backend/internal/health/handler"
	profilehandler "maya-assessment/backend/internal/profile/handler"
	profilerepo "maya-assessment/backend/internal/profile/repository"
	questionhandler "maya-assessment/backend/internal/question/handler"
	questionrepo "maya-assessment/backend/internal/question/repository"
	retentionservice "maya-assessment/backend/internal/retention/service"
	"maya-assessment/backend/internal/scoring"
	"maya-assessment/backend/internal/security"
	"maya-assessment/backend/internal/server"
	sessionrepo "maya-assessment/backend/internal/session/repository"
	"maya-assessment/backend/internal/telemetry"
	telemetryotel "maya-assessment/backend/internal/telemetry/otel"
	"maya-assessment/backend/internal/telemetry/producer"
	usagerepo "maya-assessment/backend/internal/usage/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTPublicKey == "" {
		log.Fatal("JWT_PUBLIC_KEY is required")
	}

	ctx := context.Background()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "maya-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	var emitter telemetry.EventEmitter
	if kafkaProducer != nil {
		emitter = kafkaProducer
	} else {
		emitter = telemetryotel.NewEventEmitter(providers.LoggerProvider)
	}

	pubKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenVerifier(pubKey, cfg.JWTIssuer, cfg.JWTAudience)

	questions := questionrepo.NewPostgresRepository(database)
	usage := usagerepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	profiles := profilerepo.NewPostgresRepository(database)
	reservations := allocationrepo.NewPostgresStore(database)

	allocator := allocationservice.NewService(questions, usage, reservations, cfg.ShardCount, cfg.AllocMaxShardAttempts)

	policyText := ""
	if cfg.EntitlementPolicyPath != "" {
		raw, err := os.ReadFile(cfg.EntitlementPolicyPath)
		if err != nil {
			log.Fatalf("entitlement policy: %v", err)
		}
		policyText = string(raw)
	}
	checker := entitlement.NewOPAChecker(policyText)

	registry := conversation.NewRegistry()
	evaluator := conversation.NewHeuristicEvaluator()
	engineCfg := conversation.Config{
		Part1MaxQuestions: cfg.Part1MaxQuestions,
		Part3MaxQuestions: cfg.Part3MaxQuestions,
		Part2PrepSeconds:  cfg.Part2PrepSeconds,
		Part2SpeakSeconds: cfg.Part2SpeakSeconds,
	}

	var scorer scoring.Scorer
	if cfg.ScorerURL != "" {
		scorer = scoring.NewHTTPScorer(cfg.ScorerURL, cfg.ScorerTimeoutDuration())
	} else {
		log.Println("SCORER_URL not set; completed sessions stay scoring-pending")
		scorer = unavailableScorer{}
	}

	recordTTL := time.Duration(cfg.PreservedRecordTTLDays) * 24 * time.Hour
	retention := retentionservice.NewService(profiles, sessions, registry, emitter, recordTTL)

	convo := conversationservice.NewService(
		sessions, questions, registry, evaluator, engineCfg,
		scorer, retention, emitter, cfg.ScorerTimeoutDuration(),
	)

	router := server.NewRouter(server.Deps{
		Tokens:       tokens,
		Producer:     kafkaProducer,
		Allocation:   allocationhandler.NewHandler(allocator, convo, profiles, checker, emitter),
		Conversation: conversationhandler.NewHandler(convo, sessions),
		Profile:      profilehandler.NewHandler(profiles),
		Question:     questionhandler.NewHandler(questions, emitter, cfg.ShardCount),
		Health:       healthhandler.NewHandler(database, checker),
	})

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := retention.SweepIdleSessions(sweepCtx, cfg.SessionIdleTTLDuration())
				if err != nil {
					log.Printf("sweep: idle sessions: %v", err)
				} else if n > 0 {
					log.Printf("sweep: expired %d idle sessions", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Give in-flight async telemetry emits time to complete before tearing
	// down the producer and OTel providers.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// unavailableScorer stands in when no scorer endpoint is configured.
type unavailableScorer struct{}

func (unavailableScorer) Score(context.Context, *scoring.Summary) (*scoring.ScoredAssessment, error) {
	return nil, scoring.ErrScoringUnavailable
}

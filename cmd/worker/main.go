// Worker consumes telemetry events from Kafka and pushes them to Loki, and
// prunes preserved assessment records past their expiry date.
// Set DATABASE_URL; Kafka pumping needs KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC,
// KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"maya-assessment/backend/internal/config"
	"maya-assessment/backend/internal/db"
	profilerepo "maya-assessment/backend/internal/profile/repository"
	"maya-assessment/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("worker: db: %v", err)
	}
	defer database.Close()
	profiles := profilerepo.NewPostgresRepository(database)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	go runRecordSweep(ctx, profiles, cfg.SweepInterval())

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 || cfg.LokiURL == "" {
		log.Println("worker: KAFKA_BROKERS or LOKI_URL not set; running sweeps only")
		<-ctx.Done()
		log.Println("worker: stopped")
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.TelemetryKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	log.Printf("worker: consuming from %s (group %s), pushing to %s", cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, cfg.LokiURL)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := loki.PushEventJSON(pushCtx, cfg.LokiURL, msg.Value); err != nil {
			log.Printf("worker: loki push failed: %v", err)
		}
		pushCancel()
	}
}

// runRecordSweep prunes expired preserved assessment records on a ticker
// until ctx is canceled.
func runRecordSweep(ctx context.Context, profiles *profilerepo.PostgresRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			n, err := profiles.PruneExpired(sweepCtx, time.Now().UTC())
			cancel()
			if err != nil {
				log.Printf("worker: record sweep: %v", err)
			} else if n > 0 {
				log.Printf("worker: pruned %d expired assessment records", n)
			}
		}
	}
}

// seed inserts development sample data for local testing: a question bank
// covering every shard of each pool, plus dev profiles.
// Idempotent: skips all inserts if the dev profile (dev-user-001) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"maya-assessment/backend/internal/config"
	"maya-assessment/backend/internal/db"
	profiledomain "maya-assessment/backend/internal/profile/domain"
	profilerepo "maya-assessment/backend/internal/profile/repository"
	questiondomain "maya-assessment/backend/internal/question/domain"
	questionrepo "maya-assessment/backend/internal/question/repository"
)

const (
	devUserID          = "dev-user-001"
	devUnlimitedUserID = "dev-user-002"
	devCredits         = 5
)

// topics cycle through the generated question texts so the dev bank reads
// like a real one instead of numbered placeholders.
var topics = []string{
	"your hometown", "a book you enjoyed", "public transport", "learning languages",
	"free time", "technology in daily life", "traditions in your country", "the weather",
	"music", "cooking", "travel", "friendship",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	profiles := profilerepo.NewPostgresRepository(conn)
	questions := questionrepo.NewPostgresRepository(conn)

	existing, err := profiles.Get(ctx, devUserID)
	if err != nil {
		log.Fatalf("seed: check dev profile: %v", err)
	}
	if existing != nil {
		log.Printf("seed: dev profile %s already exists, skipping", devUserID)
		return
	}

	now := time.Now().UTC()
	for _, p := range []*profiledomain.Profile{
		{UserID: devUserID, Plan: "free", AssessmentCredits: devCredits, CreatedAt: now, UpdatedAt: now},
		{UserID: devUnlimitedUserID, Plan: "unlimited", AssessmentCredits: 0, CreatedAt: now, UpdatedAt: now},
	} {
		if err := profiles.Put(ctx, p); err != nil {
			log.Fatalf("seed: profile %s: %v", p.UserID, err)
		}
	}

	// One question per shard per (type, category) so random shard sampling
	// always finds enough candidates regardless of which shards it visits.
	speakingCategories := []questiondomain.Category{
		questiondomain.CategoryIntro,
		questiondomain.CategoryPart1,
		questiondomain.CategoryPart2,
		questiondomain.CategoryPart3,
	}
	writingCategories := []questiondomain.Category{
		questiondomain.CategoryWritingTask1,
		questiondomain.CategoryWritingTask2,
	}

	total := 0
	for _, at := range []questiondomain.AssessmentType{
		questiondomain.AssessmentAcademicSpeaking,
		questiondomain.AssessmentGeneralSpeaking,
	} {
		for _, cat := range speakingCategories {
			n, err := seedPool(ctx, questions, at, cat, cfg.ShardCount, now)
			if err != nil {
				log.Fatalf("seed: pool %s/%s: %v", at, cat, err)
			}
			total += n
		}
	}
	for _, at := range []questiondomain.AssessmentType{
		questiondomain.AssessmentAcademicWriting,
		questiondomain.AssessmentGeneralWriting,
	} {
		for _, cat := range writingCategories {
			n, err := seedPool(ctx, questions, at, cat, cfg.ShardCount, now)
			if err != nil {
				log.Fatalf("seed: pool %s/%s: %v", at, cat, err)
			}
			total += n
		}
	}

	log.Printf("seed: inserted %d questions and 2 dev profiles", total)
}

// seedPool inserts one question into every shard of the pool.
func seedPool(ctx context.Context, repo *questionrepo.PostgresRepository, at questiondomain.AssessmentType, cat questiondomain.Category, shardCount int, now time.Time) (int, error) {
	for shard := 0; shard < shardCount; shard++ {
		topic := topics[shard%len(topics)]
		q := &questiondomain.Question{
			ID:             fmt.Sprintf("dev-%s-%s-%03d", at, cat, shard),
			AssessmentType: at,
			Category:       cat,
			Shard:          shard,
			Text:           questionText(cat, topic),
			RepeatPolicy:   repeatPolicyFor(cat),
			Active:         true,
			CreatedAt:      now,
		}
		if err := repo.Create(ctx, q); err != nil {
			return shard, err
		}
	}
	return shardCount, nil
}

func questionText(cat questiondomain.Category, topic string) string {
	switch cat {
	case questiondomain.CategoryIntro:
		return fmt.Sprintf("Before we begin, let me mention we may touch on %s today.", topic)
	case questiondomain.CategoryPart1:
		return fmt.Sprintf("Let's talk about %s. What do you like most about it?", topic)
	case questiondomain.CategoryPart2:
		return fmt.Sprintf("Describe an experience involving %s. You should say what happened, when it happened, and how you felt about it.", topic)
	case questiondomain.CategoryPart3:
		return fmt.Sprintf("How do you think attitudes towards %s have changed over the last twenty years?", topic)
	case questiondomain.CategoryWritingTask1:
		return fmt.Sprintf("The chart below shows trends related to %s. Summarise the information.", topic)
	default:
		return fmt.Sprintf("Some people believe %s matters more than ever. To what extent do you agree?", topic)
	}
}

// repeatPolicyFor marks introduction lines reusable; everything else is
// consumed once per user.
func repeatPolicyFor(cat questiondomain.Category) questiondomain.RepeatPolicy {
	if cat == questiondomain.CategoryIntro {
		return questiondomain.RepeatPolicyRepeatable
	}
	return questiondomain.RepeatPolicyUnique
}

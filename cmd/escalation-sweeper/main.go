package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livechat-backend/internal/database"
	"livechat-backend/internal/env"
	"livechat-backend/internal/kv"
	"livechat-backend/internal/service/assignment"
)

func main() {
	interval := flag.Duration("interval", 30*time.Second, "time between sweeps")
	threshold := flag.Duration("threshold", assignment.DefaultEscalationThreshold, "how long an assignee may leave a conversation unopened")
	flag.Parse()

	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	store := kv.NewRedis(env.MustGet(env.RedisURL), env.Get(env.RedisPass))
	svc := assignment.New(assignment.NewDynamoRepository(db), store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("escalation sweeper running, interval=%s threshold=%s", *interval, *threshold)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		escalated, err := svc.Sweep(ctx, *threshold)
		if err != nil {
			log.Printf("sweep failed: %v", err)
		} else if escalated > 0 {
			log.Printf("escalated %d conversations", escalated)
		}

		select {
		case <-ctx.Done():
			log.Println("escalation sweeper stopping")
			return
		case <-ticker.C:
		}
	}
}

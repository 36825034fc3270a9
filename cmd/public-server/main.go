package main

import (
	"log"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/router"
	"livechat-backend/internal/database"
	"livechat-backend/internal/env"
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/kv"
	"livechat-backend/internal/queue"
)

func main() {
	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	store := kv.NewRedis(env.MustGet(env.RedisURL), env.Get(env.RedisPass))
	tokens := internaljwt.NewManager(env.MustGet(env.AgentSecretKey), store)

	if o := env.Get(env.WidgetOrigin); o != "" {
		api.AllowedOrigins = append(api.AllowedOrigins, o)
	}

	server := api.NewAPIServer(
		":82",
		queueManager,
		db,
		store,
		tokens,
		router.UtilsRoutes("/api/widget/v1"),
		router.WidgetRoutes("/api/widget/v1"),
	)

	server.Run()
}

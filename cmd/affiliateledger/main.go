package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/01030959804/affiliate-ledger/internal/app"
	"github.com/01030959804/affiliate-ledger/internal/auditor"
	"github.com/01030959804/affiliate-ledger/internal/config"
	"github.com/01030959804/affiliate-ledger/internal/database"
	"github.com/01030959804/affiliate-ledger/internal/limiter"
	"github.com/01030959804/affiliate-ledger/internal/logger"
	"github.com/01030959804/affiliate-ledger/internal/server"
)

const auditInterval = time.Minute

func main() {
	flagConfig := config.ParseFlags()

	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(flagConfig.FlagLogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	storage, err := database.NewPostgresqlDB(flagConfig.FlagDatabaseURI, l)
	if err != nil {
		log.Fatal(err)
	}
	defer storage.Close()

	var redisClient *redis.Client
	if flagConfig.FlagRedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: flagConfig.FlagRedisAddr})
		defer redisClient.Close()
	}
	orderLimiter := limiter.NewOrderLimiter(redisClient, flagConfig.FlagOrderRatePerMin, l)

	app := app.NewApp(storage, orderLimiter, flagConfig, l)

	ledgerAuditor := auditor.NewAuditor(auditInterval, app, l)
	go auditor.Run(context.Background(), ledgerAuditor)

	serv := server.NewServer(app, flagConfig, l)
	if err := server.Run(serv); err != nil {
		panic(err)
	}

}

package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type FlagConfig struct {
	FlagRunAddr         string
	FlagDatabaseURI     string
	FlagRedisAddr       string
	FlagLogLevel        string
	FlagMinWithdrawal   float64
	FlagOrderRatePerMin int
}

func NewFlagConfig() *FlagConfig {
	return &FlagConfig{}
}

func ParseFlags() (flagConfig *FlagConfig) {
	_ = godotenv.Load()

	flagConfig = NewFlagConfig()
	flag.StringVar(&flagConfig.FlagLogLevel, "l", "info", "log level")
	flag.StringVar(&flagConfig.FlagRunAddr, "a", "localhost:8081", "service launch address and port")
	flag.StringVar(&flagConfig.FlagDatabaseURI, "d", "host=localhost user=app password=123qwe dbname=affiliates_database sslmode=disable", "database connection address")
	flag.StringVar(&flagConfig.FlagRedisAddr, "r", "", "redis address for the order rate limiter, empty disables it")
	flag.Float64Var(&flagConfig.FlagMinWithdrawal, "w", 50.0, "minimum withdrawal amount")
	flag.IntVar(&flagConfig.FlagOrderRatePerMin, "o", 10, "orders allowed per affiliate per minute")
	flag.Parse()

	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		flagConfig.FlagLogLevel = envLogLevel
	}
	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		flagConfig.FlagRunAddr = envRunAddr
	}
	if envDatabaseURL := os.Getenv("DATABASE_URI"); envDatabaseURL != "" {
		flagConfig.FlagDatabaseURI = envDatabaseURL
	}
	if envRedisAddr := os.Getenv("REDIS_ADDRESS"); envRedisAddr != "" {
		flagConfig.FlagRedisAddr = envRedisAddr
	}
	if envMinWithdrawal := os.Getenv("MIN_WITHDRAWAL_AMOUNT"); envMinWithdrawal != "" {
		if value, err := strconv.ParseFloat(envMinWithdrawal, 64); err == nil {
			flagConfig.FlagMinWithdrawal = value
		}
	}
	if envOrderRate := os.Getenv("RATE_LIMIT_PER_MINUTE"); envOrderRate != "" {
		if value, err := strconv.Atoi(envOrderRate); err == nil {
			flagConfig.FlagOrderRatePerMin = value
		}
	}
	return
}

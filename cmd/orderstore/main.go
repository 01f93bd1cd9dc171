// Command orderstore opens the configured database, brings the schema up to
// date and seeds the default roles. Configuration comes from the environment,
// optionally through a .env file.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	orm "github.com/medatechnology/orderstore"
	"github.com/medatechnology/orderstore/account"
	"github.com/medatechnology/orderstore/postgres"
	"github.com/medatechnology/orderstore/shop"
	"github.com/medatechnology/orderstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	logger, err := orm.NewZapLogger(orm.ParseLogLevel(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	metrics, err := orm.NewMetrics(prometheus.DefaultRegisterer, "orderstore")
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	db, err := openDatabase(logger, metrics)
	if err != nil {
		logger.Error("failed to open database", orm.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := shop.Migrate(ctx, db); err != nil {
		logger.Error("schema migration failed", orm.Error(err))
		os.Exit(1)
	}
	repo := shop.NewRepositories(db, logger)
	if err := repo.Roles.EnsureRoles(ctx, shop.DefaultRoles...); err != nil {
		logger.Error("seeding roles failed", orm.Error(err))
		os.Exit(1)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		accounts, err := account.NewService(repo.Users, account.Config{
			Secret:   []byte(secret),
			TokenTTL: getEnvDuration("JWT_TTL", account.DefaultTokenTTL),
		}, logger)
		if err != nil {
			logger.Error("account service", orm.Error(err))
			os.Exit(1)
		}
		logger.Info("accounts ready", orm.Duration("token_ttl", accounts.TokenTTL()))
	} else {
		logger.Warn("JWT_SECRET is not set, accounts are unavailable")
	}

	status, err := db.Status(ctx)
	if err != nil {
		logger.Warn("status unavailable", orm.Error(err))
		return
	}
	status.PrintPretty("  ", "orderstore")
}

func openDatabase(logger orm.Logger, metrics *orm.Metrics) (orm.Database, error) {
	switch driver := getEnv("ORDERSTORE_DRIVER", "sqlite"); driver {
	case "postgres":
		config, err := postgresConfig()
		if err != nil {
			return nil, err
		}
		return postgres.NewDatabase(*config, postgres.Options{Logger: logger, Metrics: metrics})
	case "sqlite":
		config := sqlite.NewDefaultConfig(getEnv("SQLITE_PATH", "orderstore.db"))
		return sqlite.NewDatabase(*config, sqlite.Options{Logger: logger, Metrics: metrics})
	default:
		return nil, fmt.Errorf("unknown ORDERSTORE_DRIVER %q", driver)
	}
}

func postgresConfig() (*postgres.PostgresConfig, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return postgres.ParseDSN(dsn)
	}
	config := postgres.NewConfig(
		getEnv("DB_HOST", "localhost"),
		getEnvInt("DB_PORT", 5432),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "orderstore"),
	)
	config.WithSSLMode(getEnv("DB_SSLMODE", "disable"))
	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

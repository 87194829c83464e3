// Command migrate creates the Entities, Users and Schools tables when
// they do not exist yet.
package main

import (
	"context"
	"log"
	"time"

	"handswers-backend/infrastructure/config"
	"handswers-backend/infrastructure/di"
	"handswers-backend/infrastructure/persistence/dynamodb"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	client := di.ProvideDynamoDBClient(awsCfg, cfg)

	names := dynamodb.TableNames{
		Entities: cfg.Tables.Entities,
		Users:    cfg.Tables.Users,
		Schools:  cfg.Tables.Schools,
	}
	if err := dynamodb.EnsureTables(ctx, client, names, logger); err != nil {
		log.Fatalf("Failed to ensure tables: %v", err)
	}
	logger.Info("Tables ready")
}

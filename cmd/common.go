package cmd

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/config"
	"github.com/truemediaorg/crosspublisher/database"
	"github.com/truemediaorg/crosspublisher/runner"
	"github.com/truemediaorg/crosspublisher/service"
)

func setup(defaultMode config.FileServerMode) (config.Config, aws.Config, *secretsmanager.Client) {
	cfg := config.FromEnvfile(defaultMode)
	config.SetupLogging(cfg.Log)

	if cfg.TestModeEnabled {
		log.Info("TEST MODE ENABLED")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	return cfg, awsConfig, secretsmanager.NewFromConfig(awsConfig)
}

// openLedger connects to Postgres when a ledger is configured. The returned
// close func is always safe to call.
func openLedger(ctx context.Context, cfg config.Config, secrets service.SecretGetter) (runner.Ledger, func()) {
	if !cfg.LedgerEnabled() {
		log.Debug("no database configured, publish ledger disabled")
		return nil, func() {}
	}

	databaseURL, err := service.DatabaseURL(ctx, cfg, secrets)
	if err != nil {
		log.Fatal(err.Error())
	}
	database := database.NewDatabase(databaseURL)
	if err := database.Connect(ctx); err != nil {
		log.Fatalf("error connecting to database: %v", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("error preparing database: %v", err)
	}
	return database, database.Disconnect
}

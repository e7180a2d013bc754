package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-anon-inbox/internal/config"
	"github.com/go-anon-inbox/internal/infrastructure/awsconf"
	"github.com/go-anon-inbox/internal/infrastructure/dynamo"
	"github.com/go-anon-inbox/internal/infrastructure/genai"
	jwtinfra "github.com/go-anon-inbox/internal/infrastructure/jwt"
	"github.com/go-anon-inbox/internal/infrastructure/memory"
	s3infra "github.com/go-anon-inbox/internal/infrastructure/s3"
	"github.com/go-anon-inbox/internal/infrastructure/smtp"
	"github.com/go-anon-inbox/internal/infrastructure/sns"
	"github.com/go-anon-inbox/internal/pkg/logging"
	transporthttp "github.com/go-anon-inbox/internal/transport/http"
	"github.com/urfave/cli/v3"
)

func setup() (*config.Config, *slog.Logger, func()) {
	cfg := config.Load()
	logger, closer := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	return cfg, logger, func() { _ = closer.Close() }
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, logger, done := setup()
	defer done()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func bootstrap(ctx context.Context, _ *cli.Command) error {
	cfg, logger, done := setup()
	defer done()

	awsCfg, err := awsconf.Load(ctx, cfg)
	if err != nil {
		return err
	}
	if err := dynamo.Bootstrap(ctx, dynamo.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.DynamoTables); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}
	logger.Info("tables ready", "accounts", cfg.DynamoTables.Accounts, "account_emails", cfg.DynamoTables.AccountEmails)
	return nil
}

// buildDeps wires the account store and the optional integrations. Optional
// ones are only assigned when configured so the interfaces stay nil.
func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transporthttp.Deps, error) {
	tokens, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("session tokens: %w", err)
	}
	deps := &transporthttp.Deps{
		Tokens: tokens,
		Mailer: smtp.NewMailer(cfg),
		Logger: logger,
	}

	var awsCfg aws.Config
	if !cfg.UsesMemoryStore() || cfg.S3BucketName != "" || cfg.SNSTopicARN != "" {
		if awsCfg, err = awsconf.Load(ctx, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory account store, data is lost on restart")
		deps.Accounts = memory.NewAccountStore()
	} else {
		client := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
		if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
			logger.Warn("table bootstrap failed", "err", err)
		}
		deps.Accounts = dynamo.NewAccountRepo(client, cfg.DynamoTables)
	}

	if cfg.SNSTopicARN != "" {
		deps.Events = sns.NewPublisher(sns.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.SNSTopicARN)
	} else {
		logger.Info("SNS topic not set, inbox events are disabled")
	}

	if cfg.S3BucketName != "" {
		deps.Exporter = s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName)
	} else {
		logger.Info("S3 bucket not set, inbox export is disabled")
	}

	gen, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if gen != nil {
		deps.Generator = gen
	} else {
		logger.Info("suggestion API key not set, suggestions are disabled")
	}

	return deps, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/internal/config"
	"github.com/healthmate/companion/internal/security"
	"github.com/healthmate/companion/internal/session"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration. Set HEALTHMATE_API_URL", zap.Error(err))
	}

	token, err := loadToken(cfg)
	if err != nil {
		logger.Warn("No usable session token, authenticated checks will be skipped", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := 0

	logger.Info("=== Checking backend contract document ===")
	validator, err := apiclient.NewContractValidator(ctx)
	if err != nil {
		logger.Error("Contract document failed to load", zap.Error(err))
		failed++
	} else {
		logger.Info("✅ Contract document loaded")
	}

	client := apiclient.New(cfg.API.BaseURL, apiclient.TokenFunc(func() string { return token }), apiclient.Options{
		Timeout:   cfg.API.Timeout,
		Validator: validator,
	}, logger)

	logger.Info("=== Checking backend reachability ===", zap.String("api_url", cfg.API.BaseURL))
	if err := checkReachable(ctx, client, token, logger); err != nil {
		logger.Error("Backend reachability check failed", zap.Error(err))
		failed++
	} else {
		logger.Info("✅ Backend reachable")
	}

	if token != "" {
		logger.Info("=== Checking authenticated endpoints ===")
		if err := checkAuthenticated(ctx, client, logger); err != nil {
			logger.Error("Authenticated endpoint check failed", zap.Error(err))
			failed++
		} else {
			logger.Info("✅ Authenticated endpoints responded")
		}
	}

	logger.Info("=== All checks completed ===", zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}

func loadToken(cfg *config.Config) (string, error) {
	key, err := cfg.Session.Key()
	if err != nil {
		return "", err
	}
	var sealer *security.TokenSealer
	if key != nil {
		if sealer, err = security.NewTokenSealer(key); err != nil {
			return "", err
		}
	}

	token, err := session.NewFileTokenStore(cfg.Session.TokenFile, sealer).Load()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("no token stored at %s", cfg.Session.TokenFile)
	}
	return token, nil
}

// checkReachable calls /auth/me. Without a token a 401 still proves the backend answers.
func checkReachable(ctx context.Context, client *apiclient.Client, token string, logger *zap.Logger) error {
	user, err := client.Auth.Me(ctx)
	if err != nil {
		if token == "" && apiclient.StatusOf(err) == 401 {
			logger.Info("Backend answered 401 for anonymous request")
			return nil
		}
		return err
	}
	logger.Info("Session is valid", zap.String("user_id", user.ID), zap.String("name", user.Name))
	return nil
}

func checkAuthenticated(ctx context.Context, client *apiclient.Client, logger *zap.Logger) error {
	files, err := client.Files.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	logger.Info("Files listed", zap.Int("count", len(files)))

	insights, err := client.Insights.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list insights: %w", err)
	}
	logger.Info("Insights listed", zap.Int("count", len(insights)))

	vitals, err := client.Vitals.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list vitals: %w", err)
	}
	logger.Info("Vitals listed", zap.Int("count", len(vitals)))

	if len(vitals) > 0 {
		advice, err := client.Vitals.Advice(ctx, vitals[0].ID)
		if err != nil {
			logger.Warn("Vitals advice unavailable", zap.String("vitals_id", vitals[0].ID), zap.Error(err))
		} else {
			logger.Info("Vitals advice received", zap.Int("size_bytes", len(advice)))
		}
	}
	return nil
}

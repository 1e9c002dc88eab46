// Package main WisePicks API
//
// @title           WisePicks API
// @version         1.0
// @description     Прогнозы на спорт с премиум-подпиской: лента прогнозов, платежи, личный кабинет и администрирование.

// @contact.name   API Support
// @contact.email  support@wisepicks.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/magabrotheeeer/wisepicks/docs"
	"github.com/magabrotheeeer/wisepicks/internal/app/wisepicks"
	"github.com/magabrotheeeer/wisepicks/internal/config"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting wisepicks", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := wisepicks.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("wisepicks stopped gracefully")
}

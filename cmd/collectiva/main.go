// Package main запускает HTTP-сервер сервиса collectiva.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bbqsrc/collectiva/internal/config"
	"github.com/bbqsrc/collectiva/internal/gateway"
	"github.com/bbqsrc/collectiva/internal/handler"
	"github.com/bbqsrc/collectiva/internal/mailer"
	"github.com/bbqsrc/collectiva/internal/middleware"
	"github.com/bbqsrc/collectiva/internal/paypal"
	"github.com/bbqsrc/collectiva/internal/repository"
	"github.com/bbqsrc/collectiva/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	charger := gateway.NewStripeClient(cfg.StripeAPIURL, cfg.StripeSecretKey, cfg.StripeCurrency)
	verifier := paypal.NewVerifier(cfg.PayPalServerURL)

	var sender mailer.Sender
	if smtpMailer := mailer.NewSMTPMailer(cfg.SMTPAddress, cfg.EmailFrom); smtpMailer.Enabled() {
		sender = smtpMailer
	} else {
		sugar.Warn("smtp address not configured, email delivery disabled")
	}

	svc := service.NewService(repo, charger, sender, cfg.PublicURL, logger)
	defer svc.Close()

	// Начальная учётная запись администратора для подтверждения платежей
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if _, err := svc.RegisterAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			if !errors.Is(err, repository.ErrAdminExists) {
				sugar.Fatalw("admin account initialization error", "error", err.Error())
			}
		} else {
			sugar.Infow("admin account created", "username", cfg.AdminUsername)
		}
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AdminSecret)
	h := handler.NewHandler(svc, verifier, cfg.PayPalEmail, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой рассылки напоминаний о продлении членства
	g.Go(func() error {
		svc.StartRenewalReminders(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting collectiva server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-backend/config"
	_ "portfolio-backend/docs" // Important for Swagger
	v1 "portfolio-backend/internal/delivery/http/v1"
	"portfolio-backend/internal/usecase"
	"portfolio-backend/pkg/email"
	"portfolio-backend/pkg/email/resend"
	"portfolio-backend/pkg/logger"
	"portfolio-backend/pkg/validation"

	"github.com/gin-gonic/gin"
)

// @title           Portfolio Contact API
// @version         1.0
// @description     Contact form mail endpoint for the portfolio site.
// @host            localhost:8080
// @BasePath        /v1
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting portfolio backend", "port", cfg.Port, "mail_transport", cfg.MailTransport)
	gin.SetMode(cfg.GinMode)

	// 3. Setup Email Transport
	sender := newSender(cfg)

	// 4. Setup UseCases
	validate := validation.New()
	contactUC := usecase.NewContactUsecase(sender, usecase.ContactConfig{
		FromEmail:    cfg.SMTPFromEmail,
		OwnerName:    cfg.OwnerName,
		OwnerMailbox: cfg.MailReceiverAddress,
	})
	healthUC := usecase.NewHealthUsecase(transportName(cfg, sender))

	// 5. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		HealthUC:  healthUC,
		Validate:  validate,
		Config:    cfg,
	})

	// 6. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// In-flight requests may be waiting on two relay round trips
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}

// newSender returns nil when mail is disabled; the contact endpoint then
// answers 503 and the health check reports degraded
func newSender(cfg *config.Config) email.Sender {
	switch cfg.MailTransport {
	case config.TransportNone:
		logger.Log.Warn("Mail transport disabled - contact form will be unavailable")
		return nil
	case config.TransportResend:
		return resend.New(cfg.ResendAPIKey)
	default:
		s := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Secure:   cfg.SMTPSecure,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		logger.Log.Info("SMTP relay configured", "addr", s.Addr(), "secure", cfg.SMTPSecure)
		return s
	}
}

func transportName(cfg *config.Config, sender email.Sender) string {
	if sender == nil {
		return ""
	}
	return cfg.MailTransport
}

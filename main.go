package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saas-starter/config"
	"saas-starter/database"
	adminapi "saas-starter/internal/api/admin"
	authapi "saas-starter/internal/api/auth"
	billingapi "saas-starter/internal/api/billing"
	plansapi "saas-starter/internal/api/plans"
	settingsapi "saas-starter/internal/api/settings"
	stripewebhooks "saas-starter/internal/api/stripewebhook"
	usersapi "saas-starter/internal/api/users"
	routes "saas-starter/internal/app/http"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/infra/email"
	"saas-starter/internal/infra/logging"
	"saas-starter/internal/infra/session"
	"saas-starter/internal/infra/store"
	stripeinfra "saas-starter/internal/infra/stripe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	repo := store.New(db)

	registry := plans.NewRegistry(plans.Prices{
		Pro:        cfg.Stripe.ProPriceID,
		Enterprise: cfg.Stripe.EnterprisePriceID,
	})
	stripeClient := stripeinfra.NewClient(cfg.Stripe.SecretKey, nil)

	mailer := email.NewMailer(newSender(cfg, log), repo, log,
		email.WithRetries(cfg.Email.MaxRetries, 500*time.Millisecond))

	ingestor := stripewebhooks.NewIngestor(repo, registry, stripeinfra.NewVerifier(cfg.Stripe.WebhookSecret), mailer,
		stripewebhooks.Config{AppName: cfg.AppName, AppURL: cfg.AppURL}, log)

	issuer := session.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	var google *authapi.Google
	if cfg.Google.Enabled() {
		google, err = authapi.NewGoogleFromDiscovery(ctx, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		if err != nil {
			log.WithError(err).Warn("google sign-in disabled")
		}
	}

	r := gin.New()
	r.Use(gin.LoggerWithWriter(logging.GinWriter(log)), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(cfg),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Sessions: issuer,
		Auth: authapi.NewHandler(repo, issuer, google, authapi.Options{
			AppURL:       cfg.AppURL,
			SecureCookie: cfg.IsProduction(),
		}, log),
		Billing:  billingapi.NewHandler(billingapi.NewService(repo, stripeClient, registry, cfg.AppURL, log), repo, registry, log),
		Plans:    plansapi.NewHandler(registry, stripeClient, log),
		Webhooks: stripewebhooks.NewHandler(ingestor),
		Users:    usersapi.NewHandler(repo, registry, log),
		Admin:    adminapi.NewHandler(repo, log),
		Settings: settingsapi.NewHandler(repo, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("🚀 server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	ingestor.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newSender(cfg *config.Config, log logrus.FieldLogger) email.Sender {
	if cfg.Email.PostmarkServerToken == "" {
		log.Warn("POSTMARK_SERVER_TOKEN not set, emails are logged only")
		return email.LogSender{Log: log}
	}
	sender, err := email.NewPostmarkSender(email.PostmarkConfig{
		ServerToken:  cfg.Email.PostmarkServerToken,
		AccountToken: cfg.Email.PostmarkAccountToken,
		From:         cfg.Email.From,
		ReplyTo:      cfg.Email.Support,
	})
	if err != nil {
		log.WithError(err).Fatal("email")
	}
	return sender
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.CORSOrigin != "" {
		return []string{cfg.CORSOrigin}
	}
	return []string{cfg.AppURL}
}

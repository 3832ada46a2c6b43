package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"subscription-app/config"
	"subscription-app/database"
	"subscription-app/internal/api/billing"
	"subscription-app/internal/api/entitlements"
	"subscription-app/internal/api/paymentwebhook"
	routes "subscription-app/internal/app/http"
	"subscription-app/internal/domain/entitlement"
	"subscription-app/internal/domain/plans"
	"subscription-app/internal/domain/subscription"
	"subscription-app/internal/infra/mercadopago"
	"subscription-app/internal/infra/notify"
)

func main() {
	config.LoadEnv()
	initLogger()
	database.InitDB()

	catalog := plans.NewCatalog(plans.DefaultPlans())
	if err := database.SeedPlans(database.DB, catalog.List()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed plan catalog")
	}

	processor, err := mercadopago.NewClient(config.MP_BASE_URL, config.MP_ACCESS_TOKEN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build payment processor client")
	}

	var publisher notify.Publisher = notify.LogPublisher{}
	if config.AMQP_URL != "" {
		amqpPublisher, err := notify.NewAMQPPublisher(config.AMQP_URL, config.ALERT_EXCHANGE)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect alert publisher")
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	store := entitlement.NewStore(database.DB, catalog)
	store.SetObserver(entitlement.NewEmitter(database.DB, publisher))
	reconciler := subscription.NewReconciler(store, catalog)
	gateway := paymentwebhook.NewGateway(processor, store, reconciler)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Webhook:      paymentwebhook.NewHandler(gateway),
		Entitlements: entitlements.NewHandler(store, catalog),
		Billing:      billing.NewHandler(processor, catalog),
		Store:        store,
		Catalog:      catalog,
	})

	if err := r.Run(":" + config.PORT); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func initLogger() {
	level, err := zerolog.ParseLevel(config.LOG_LEVEL)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/growsinofficial/kyc-sub000/cmd/fx/account_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/db_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/gateway_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/ledger_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/logger_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/mail_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/payment_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/reconciliation_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/retry_fx"
	"github.com/growsinofficial/kyc-sub000/cmd/fx/webhook_fx"
	"github.com/growsinofficial/kyc-sub000/internal/api/controllers"
	"github.com/growsinofficial/kyc-sub000/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	app := fx.New(
		logger_fx.Module,
		db_fx.Module,
		gateway_fx.Module,
		ledger_fx.Module,
		mail_fx.Module,
		account_fx.Module,
		payment_fx.Module,
		reconciliation_fx.Module,
		webhook_fx.Module,
		retry_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				log.Printf("Starting HTTP server on :%s", port)
				if err := engine.Run(":" + port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	accountController *controllers.AccountController,
	paymentController *controllers.PaymentController,
	webhookController *controllers.WebhookController,
) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, accountController, paymentController, webhookController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountController *controllers.AccountController,
	paymentController *controllers.PaymentController,
	webhookController *controllers.WebhookController) {

	userLimiter := middleware.NewRateLimiter(30, time.Minute)
	webhookLimiter := middleware.NewRateLimiter(120, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", accountController.Register)
	authGroup.POST("/login", accountController.Login)

	payments := r.Group("/payments")
	payments.POST("/webhook", middleware.PerIPRateLimit(webhookLimiter), webhookController.HandleWebhook)

	authed := payments.Group("")
	authed.Use(middleware.JWTAuthMiddleware())
	authed.POST("/initiate", middleware.PerUserRateLimit(userLimiter), paymentController.Initiate)
	authed.POST("/verify", middleware.PerUserRateLimit(userLimiter), paymentController.Verify)
	authed.GET("/history", paymentController.History)
	authed.POST("/:transactionId/cancel", paymentController.Cancel)
	authed.POST("/:transactionId/refund", middleware.RoleMiddleware("admin"), paymentController.Refund)
}

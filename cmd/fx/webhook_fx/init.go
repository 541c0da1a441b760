package webhook_fx

import (
	"os"

	"github.com/growsinofficial/kyc-sub000/internal/api/controllers"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/growsinofficial/kyc-sub000/internal/services"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	repositories.NewWebhookEventRepository,
	provideWebhookService,
	controllers.NewWebhookController,
)

func provideWebhookService(
	txnRepo repositories.ITransactionRepository,
	eventRepo repositories.IWebhookEventRepository,
	reconciliation services.IReconciliationService,
	log zerolog.Logger,
) services.IWebhookService {
	return services.NewWebhookService(
		os.Getenv("GATEWAY_WEBHOOK_SECRET"),
		txnRepo,
		eventRepo,
		reconciliation,
		log,
	)
}

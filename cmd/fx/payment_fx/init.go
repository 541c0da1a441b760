package payment_fx

import (
	"github.com/growsinofficial/kyc-sub000/internal/api/controllers"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/growsinofficial/kyc-sub000/internal/services"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	repositories.NewTransactionRepository,
	repositories.NewPlanRepository,
	services.NewPaymentService,
	services.NewRefundService,
	controllers.NewPaymentController,
)

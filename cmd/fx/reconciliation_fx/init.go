package reconciliation_fx

import (
	"context"

	"github.com/growsinofficial/kyc-sub000/internal/services"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(services.NewReconciliationService),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, reconciliation services.IReconciliationService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			reconciliation.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			reconciliation.Stop()
			return nil
		},
	})
}

package retry_fx

import (
	"context"

	"github.com/growsinofficial/kyc-sub000/internal/services"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(services.NewRetryService),
	fx.Invoke(runScheduler),
)

func runScheduler(lc fx.Lifecycle, retry services.IRetryService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			retry.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			retry.Stop()
			return nil
		},
	})
}

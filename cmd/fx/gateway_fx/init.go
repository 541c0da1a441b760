package gateway_fx

import (
	"os"

	"github.com/growsinofficial/kyc-sub000/internal/gateway"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	provideGatewayClient)

func provideGatewayClient(log zerolog.Logger) gateway.Client {
	cfg := gateway.Config{
		BaseURL:       os.Getenv("GATEWAY_BASE_URL"),
		APIKey:        os.Getenv("GATEWAY_API_KEY"),
		WebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
	}
	return gateway.NewHTTPClient(cfg, log)
}

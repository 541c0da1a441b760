package logger_fx

import (
	"github.com/growsinofficial/kyc-sub000/pkg/logger"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	provideLogger)

func provideLogger() zerolog.Logger {
	return logger.New()
}

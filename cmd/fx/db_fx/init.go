package db_fx

import (
	"github.com/growsinofficial/kyc-sub000/internal/infra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Provide(
	provideDB)

func provideDB() *gorm.DB {
	return infra.InitPostgresql()
}

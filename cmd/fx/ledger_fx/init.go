package ledger_fx

import (
	"os"

	"github.com/growsinofficial/kyc-sub000/internal/ledger"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	provideLedgerClient)

func provideLedgerClient(log zerolog.Logger) ledger.Client {
	cfg := ledger.Config{
		BaseURL:   os.Getenv("LEDGER_BASE_URL"),
		AuthToken: os.Getenv("LEDGER_AUTH_TOKEN"),
		OrgID:     os.Getenv("LEDGER_ORG_ID"),
	}
	return ledger.NewHTTPClient(cfg, log)
}

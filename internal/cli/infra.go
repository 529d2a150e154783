package cli

import (
	"context"

	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// connect opens a database connection using the environment configuration and
// returns a runner plus its cleanup func.
func connect(ctx context.Context) (*infra.SQLRunner, func(), error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := infra.NewLogger(cfg.AppEnv)
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return infra.NewSQLRunner(pool, logger), pool.Close, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/mcdev12/lotto/go/internal/config"
	"github.com/mcdev12/lotto/go/internal/dbconfig"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/mcdev12/lotto/go/internal/store/promocache"
	"github.com/mcdev12/lotto/go/internal/store/sqlstore"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// setupStore opens the configured store and, when Redis is configured, puts
// the promo cache in front of it. The returned func releases connections.
func setupStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	var (
		st      store.Store
		closers []func() error
	)

	if cfg.Database.Driver == dbconfig.DriverMemory {
		log.Warn().Msg("using in-memory store, state is lost on restart")
		st = store.NewMemory()
	} else {
		dsn, err := cfg.Database.DataSource()
		if err != nil {
			return nil, nil, err
		}
		sqlStore, err := sqlstore.Open(ctx, cfg.Database.Driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open store: %w", err)
		}
		st = sqlStore
		closers = append(closers, sqlStore.Close)
	}

	if cfg.Redis.Addr != "" {
		cacheCfg := promocache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "lotto:promo",
			TTL:      cfg.Redis.TTL,
		}
		client := promocache.MustEstablishConn(cacheCfg)
		st = promocache.New(st, client, cacheCfg)
		closers = append(closers, client.Close)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("promo cache enabled")
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Error().Err(err).Msg("failed to close store connection")
			}
		}
	}
	return st, closeAll, nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == dbconfig.DriverMemory {
		log.Info().Msg("memory driver has no schema to migrate")
		return nil
	}

	dsn, err := cfg.Database.DataSource()
	if err != nil {
		return err
	}
	// Open applies the schema.
	st, err := sqlstore.Open(ctx, cfg.Database.Driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	defer st.Close()

	log.Info().Str("driver", cfg.Database.Driver).Msg("schema is up to date")
	return nil
}

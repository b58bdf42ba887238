package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/replica-sync/checkpoint"
	"github.com/warp/replica-sync/config"
	"github.com/warp/replica-sync/extract"
	"github.com/warp/replica-sync/ringlog"
	"github.com/warp/replica-sync/source/sqlrepo"
	"github.com/warp/replica-sync/sync"
	"github.com/warp/replica-sync/target/mongostore"
)

// app bundles everything both subcommands need so main.go's two command
// files stay focused on flag parsing and lifecycle only.
type app struct {
	cfg    config.Config
	db     *sqlrepo.Source
	target *mongostore.Store
	engine *sync.Engine
	ring   *ringlog.Ring
	log    zerolog.Logger
}

func wire(ctx context.Context, cfgPath string) (*app, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Str("service", "replica-sync").Logger()

	db, err := sqlrepo.Open(cfg.Source.ConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	if err := sqlrepo.Migrate(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate source: %w", err)
	}

	store, err := mongostore.Connect(ctx, cfg.Target.ConnectionString, cfg.Target.DatabaseName,
		cfg.Target.SocketTimeout(), cfg.Target.ServerSelectionTimeout())
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect target: %w", err)
	}

	ring := ringlog.New(ringlog.DefaultCapacity)
	checkpoints := checkpoint.New(db)
	engine := sync.NewEngine(cfg, checkpoints, store, logger, ring)

	engine.Register(config.EntityCategories, sync.Registration{Extractor: extract.Categories{DB: db}, Collection: config.EntityCategories, FullSnapshot: true})
	engine.Register(config.EntityBusinessSettings, sync.Registration{Extractor: extract.BusinessSettings{DB: db}, Collection: config.EntityBusinessSettings})
	engine.Register(config.EntityProducts, sync.Registration{Extractor: extract.Products{DB: db}, Collection: config.EntityProducts})
	engine.Register(config.EntityCustomers, sync.Registration{Extractor: extract.Customers{DB: db}, Collection: config.EntityCustomers})
	engine.Register(config.EntityEmployees, sync.Registration{Extractor: extract.Employees{DB: db}, Collection: config.EntityEmployees})
	engine.Register(config.EntityExpenses, sync.Registration{Extractor: extract.Expenses{DB: db}, Collection: config.EntityExpenses})
	engine.Register(config.EntityTransactions, sync.Registration{Extractor: extract.Transactions{DB: db}, Collection: config.EntityTransactions})

	a := &app{
		cfg: cfg, db: &sqlrepo.Source{DB: db}, target: store, engine: engine, ring: ring, log: logger,
	}
	cleanup := func() {
		store.Close(context.Background())
		db.Close()
	}
	return a, cleanup, nil
}

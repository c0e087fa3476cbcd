package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dwikikusuma/cartline/internal/aggregate"
	cartapp "github.com/dwikikusuma/cartline/internal/cart/app"
	cartmem "github.com/dwikikusuma/cartline/internal/cart/infra/memory"
	cartpg "github.com/dwikikusuma/cartline/internal/cart/infra/postgres"
	cartsqlite "github.com/dwikikusuma/cartline/internal/cart/infra/sqlite"
	lineapp "github.com/dwikikusuma/cartline/internal/cartline/app"
	"github.com/dwikikusuma/cartline/internal/cartline/httpapi"
	lineadapter "github.com/dwikikusuma/cartline/internal/cartline/infra/adapter"
	catalogapp "github.com/dwikikusuma/cartline/internal/catalog/app"
	catalog "github.com/dwikikusuma/cartline/internal/catalog/domain"
	catalogmem "github.com/dwikikusuma/cartline/internal/catalog/infra/memory"
	catalogpg "github.com/dwikikusuma/cartline/internal/catalog/infra/postgres"
	identityapp "github.com/dwikikusuma/cartline/internal/identity/app"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/dwikikusuma/cartline/internal/identity/infra/firebase"
	"github.com/dwikikusuma/cartline/internal/identity/infra/session"
	summaryapp "github.com/dwikikusuma/cartline/internal/summary/app"
	summaryadapter "github.com/dwikikusuma/cartline/internal/summary/infra/adapter"
	"github.com/dwikikusuma/cartline/pkg/config"
	"github.com/dwikikusuma/cartline/pkg/logger"
	"github.com/dwikikusuma/cartline/pkg/postgres"
	"github.com/dwikikusuma/cartline/pkg/shutdown"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service:   "gateway",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	root := context.Background()
	ctx, cancel := shutdown.WithSignals(root)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gateway stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	kv, repo, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	policy, err := cartapp.ParsePolicy(cfg.Store.MalformedPolicy)
	if err != nil {
		return err
	}
	store := cartapp.NewStore(kv, cartapp.WithPolicy(policy), cartapp.WithLogger(log))

	catalogSvc := catalogapp.NewService(repo)
	seeds, err := seedProducts(cfg.Catalog)
	if err != nil {
		return err
	}
	n, err := catalogSvc.Seed(ctx, seeds)
	if err != nil {
		return err
	}
	log.Info("catalog seeded", slog.Int("created", n))

	resolver, err := newResolver(ctx, cfg.Auth, log)
	if err != nil {
		return err
	}

	mode, err := lineapp.ParseMode(cfg.Line.Mode)
	if err != nil {
		return err
	}

	aggs := aggregate.NewStores(log)
	registry := lineapp.NewRegistry(lineapp.Deps{
		Identity: resolver,
		Cart:     store,
		Products: lineadapter.NewCatalogLookup(catalogSvc),
		Mode:     mode,
		Logger:   log,
	}, lineapp.WithOwnerAggregates(func(owner identity.Identity) lineapp.AggregateStore {
		return aggs.For(owner.PartitionKey())
	}))
	summaries := summaryapp.NewService(
		summaryadapter.NewCartStoreReader(store),
		summaryadapter.NewCatalogServiceReader(catalogSvc),
		aggs, 10,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewHandler(registry, summaries, resolver, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var serveErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr), slog.String("mode", mode.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	if err := shutdown.Graceful(10*time.Second, server.Shutdown, func() { _ = server.Close() }); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	return serveErr
}

func openStore(ctx context.Context, cfg config.StoreConfig) (cartapp.KV, catalogapp.ProductRepo, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		kv, err := cartsqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return kv, catalogmem.NewProductRepo(), func() { _ = kv.Close() }, nil

	case config.DriverPostgres:
		db, err := postgres.Open(postgres.Config{
			Host:    cfg.Postgres.Host,
			Port:    cfg.Postgres.Port,
			User:    cfg.Postgres.User,
			Pass:    cfg.Postgres.Pass,
			DB:      cfg.Postgres.DB,
			SSLMode: cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		kv := cartpg.NewKV(db)
		repo := catalogpg.NewProductRepo(db)
		if err := migrate(ctx, db, kv, repo); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return kv, repo, func() { _ = db.Close() }, nil

	default:
		return cartmem.NewKV(), catalogmem.NewProductRepo(), func() {}, nil
	}
}

func migrate(ctx context.Context, db *sql.DB, kv *cartpg.KV, repo *catalogpg.ProductRepo) error {
	if err := kv.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate cart partitions: %w", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate products: %w", err)
	}
	return nil
}

func newResolver(ctx context.Context, cfg config.AuthConfig, log *slog.Logger) (*identityapp.Resolver, error) {
	if cfg.Provider == config.AuthFirebase {
		checker, err := firebase.NewChecker(ctx, cfg.FirebaseCredentials)
		if err != nil {
			return nil, err
		}
		return identityapp.NewResolver(checker,
			identityapp.WithCoalescing(firebase.CookieFromContext),
			identityapp.WithLogger(log),
		), nil
	}

	client := session.NewClient(session.Config{
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		Username: cfg.Username,
	})
	return identityapp.NewResolver(client,
		identityapp.WithCoalescing(session.TokenFromContext),
		identityapp.WithPasswordVerifier(client),
		identityapp.WithLogger(log),
	), nil
}

func seedProducts(seeds []config.SeedProduct) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(seeds))
	for i, s := range seeds {
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog[%d] price %q: %w", i, s.Price, err)
		}
		out = append(out, catalog.Product{
			ID:          s.ID,
			Title:       s.Title,
			Price:       price,
			Description: s.Description,
			Thumbnail:   s.Thumbnail,
			Tags:        s.Tags,
		})
	}
	return out, nil
}

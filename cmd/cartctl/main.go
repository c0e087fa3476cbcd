package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dwikikusuma/cartline/internal/aggregate"
	cartapp "github.com/dwikikusuma/cartline/internal/cart/app"
	cartsqlite "github.com/dwikikusuma/cartline/internal/cart/infra/sqlite"
	lineapp "github.com/dwikikusuma/cartline/internal/cartline/app"
	lineadapter "github.com/dwikikusuma/cartline/internal/cartline/infra/adapter"
	catalogapp "github.com/dwikikusuma/cartline/internal/catalog/app"
	catalog "github.com/dwikikusuma/cartline/internal/catalog/domain"
	catalogmem "github.com/dwikikusuma/cartline/internal/catalog/infra/memory"
	identityapp "github.com/dwikikusuma/cartline/internal/identity/app"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/dwikikusuma/cartline/internal/identity/infra/static"
	summaryapp "github.com/dwikikusuma/cartline/internal/summary/app"
	summaryadapter "github.com/dwikikusuma/cartline/internal/summary/infra/adapter"
	"github.com/dwikikusuma/cartline/pkg/config"
	"github.com/dwikikusuma/cartline/pkg/logger"
	"github.com/dwikikusuma/cartline/pkg/shutdown"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	email      string
	db         string
	configPath string
	mode       string
	verbose    bool
}

type lineFlags struct {
	title      string
	price      string
	quantity   int
	times      int
	trustFlags bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rf := &rootFlags{}

	root := &cobra.Command{
		Use:   "cartctl",
		Short: "Operate on a shopper's persisted cart lines",
		Long: `cartctl drives cart line items against a local SQLite cart file.

Each line command mounts the line from flags, runs the operation and prints
the resulting local quantity and the quantity dispatched to the summary view.`,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&rf.email, "email", "", "shopper account email")
	pf.StringVar(&rf.db, "db", "cartline.db", "path to the SQLite cart file")
	pf.StringVar(&rf.configPath, "config", "", "YAML config with the catalog seed")
	pf.StringVar(&rf.mode, "mode", "", "line mode: faithful or reconciled (default from config)")
	pf.BoolVarP(&rf.verbose, "verbose", "v", false, "log debug output to stderr")
	_ = root.MarkPersistentFlagRequired("email")

	root.AddCommand(
		newLineCmd(rf, "increase", "Add units of a product", func(ctx context.Context, c *lineapp.Controller) (string, error) {
			q, err := c.Increase(ctx)
			return fmt.Sprintf("quantity %d", q), err
		}),
		newLineCmd(rf, "decrease", "Remove single units of a product", func(ctx context.Context, c *lineapp.Controller) (string, error) {
			q, err := c.Decrease(ctx)
			return fmt.Sprintf("quantity %d", q), err
		}),
		newLineCmd(rf, "remove", "Remove every unit of a product", func(ctx context.Context, c *lineapp.Controller) (string, error) {
			res, err := c.Remove(ctx)
			return fmt.Sprintf("removed %d confirmed=%t", res.Removed, res.Confirmed), err
		}),
		newShowCmd(rf),
	)
	return root
}

type lineOp func(ctx context.Context, c *lineapp.Controller) (string, error)

func newLineCmd(rf *rootFlags, use, short string, op lineOp) *cobra.Command {
	lf := &lineFlags{}
	cmd := &cobra.Command{
		Use:   use + " PRODUCT_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLine(cmd, rf, lf, args[0], op)
		},
	}
	f := cmd.Flags()
	f.StringVar(&lf.title, "title", "", "line title")
	f.StringVar(&lf.price, "price", "", "unit price")
	f.IntVar(&lf.quantity, "quantity", 0, "quantity the line currently shows")
	f.IntVar(&lf.times, "times", 1, "how many times to repeat the operation")
	f.BoolVar(&lf.trustFlags, "trust-flags", false, "accept the product from the flags when the catalog does not know it")
	return cmd
}

func newShowCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted cart with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, rf)
			if err != nil {
				return err
			}
			defer env.close()

			svc := summaryapp.NewService(
				summaryadapter.NewCartStoreReader(env.store),
				summaryadapter.NewCatalogServiceReader(env.catalog),
				env.aggs, 4,
			)
			q, err := svc.FromCart(cmd.Context(), env.identity())
			if errors.Is(err, summaryapp.ErrEmptyCart) {
				fmt.Fprintln(cmd.OutOrStdout(), "cart is empty")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, l := range q.Lines {
				fmt.Fprintf(out, "%-12s %-24s %4d x %8s = %10s\n", l.ProductID, l.Title, l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2))
			}
			fmt.Fprintf(out, "total %d items %s\n", q.TotalQuantity, q.Total.StringFixed(2))
			return nil
		},
	}
}

func runLine(cmd *cobra.Command, rf *rootFlags, lf *lineFlags, productID string, op lineOp) error {
	price := decimal.Zero
	if lf.price != "" {
		p, err := decimal.NewFromString(lf.price)
		if err != nil {
			return fmt.Errorf("invalid --price %q: %w", lf.price, err)
		}
		price = p
	}
	if lf.times < 1 {
		return fmt.Errorf("--times must be at least 1")
	}

	env, err := openEnv(cmd, rf)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := cmd.Context()
	if lf.trustFlags {
		if _, err := env.catalog.Seed(ctx, []catalog.Product{{ID: productID, Title: lf.title, Price: price}}); err != nil {
			return err
		}
	}

	c := lineapp.NewController(lineapp.Props{
		ID:       productID,
		Title:    lf.title,
		Price:    price,
		Quantity: lf.quantity,
	}, lineapp.Deps{
		Identity:  identityapp.NewResolver(static.NewChecker(rf.email), identityapp.WithLogger(env.log)),
		Cart:      env.store,
		Products:  lineadapter.NewCatalogLookup(env.catalog),
		Aggregate: env.agg,
		Mode:      env.mode,
		Logger:    env.log,
	})
	if err := c.Mount(ctx); err != nil {
		return err
	}
	if c.State() != lineapp.StateReady {
		fmt.Fprintf(cmd.ErrOrStderr(), "line %s is %s: product unknown or title/price missing\n", productID, c.State())
	}

	out := cmd.OutOrStdout()
	for i := 0; i < lf.times; i++ {
		msg, err := op(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg)
	}

	if e, ok := env.agg.Get(lf.title); ok {
		fmt.Fprintf(out, "summary %s %d x %s\n", e.Title, e.Quantity, e.Price.StringFixed(2))
	}
	return nil
}

type cliEnv struct {
	email   string
	store   *cartapp.Store
	catalog *catalogapp.Service
	aggs    *aggregate.Stores
	agg     *aggregate.Store
	mode    lineapp.Mode
	log     *slog.Logger
	kv      *cartsqlite.KV
}

func openEnv(cmd *cobra.Command, rf *rootFlags) (*cliEnv, error) {
	email := strings.TrimSpace(rf.email)
	if email == "" {
		return nil, errors.New("--email is required")
	}

	var (
		cfg config.Config
		err error
	)
	if rf.configPath != "" {
		cfg, err = config.LoadFile(rf.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	level := "warn"
	if rf.verbose {
		level = "debug"
	}
	log := logger.New(logger.Options{
		Service: "cartctl",
		Env:     cfg.AppEnv,
		Level:   level,
		Output:  cmd.ErrOrStderr(),
	})

	modeName := cfg.Line.Mode
	if rf.mode != "" {
		modeName = rf.mode
	}
	mode, err := lineapp.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	policy, err := cartapp.ParsePolicy(cfg.Store.MalformedPolicy)
	if err != nil {
		return nil, err
	}

	seeds, err := seedProducts(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	catalogSvc := catalogapp.NewService(catalogmem.NewProductRepo())
	if _, err := catalogSvc.Seed(cmd.Context(), seeds); err != nil {
		return nil, err
	}

	kv, err := cartsqlite.Open(rf.db)
	if err != nil {
		return nil, err
	}

	aggs := aggregate.NewStores(log)
	return &cliEnv{
		email:   email,
		store:   cartapp.NewStore(kv, cartapp.WithPolicy(policy), cartapp.WithLogger(log)),
		catalog: catalogSvc,
		aggs:    aggs,
		agg:     aggs.For(identity.Identity{Email: email}.PartitionKey()),
		mode:    mode,
		log:     log,
		kv:      kv,
	}, nil
}

func (e *cliEnv) close() {
	_ = e.kv.Close()
}

func (e *cliEnv) identity() identity.Identity {
	return identity.Identity{Email: e.email}
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

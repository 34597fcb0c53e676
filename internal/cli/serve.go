package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/internal/server"
	"github.com/matzehuels/fieldtrial/pkg/cache"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
	"github.com/matzehuels/fieldtrial/pkg/store"
	"github.com/matzehuels/fieldtrial/pkg/store/mongo"
	"github.com/matzehuels/fieldtrial/pkg/store/sqlite"
)

type serveOpts struct {
	addr        string
	redisAddr   string
	redisPrefix string
	mongoURI    string
	mongoDB     string
	sqlitePath  string
	noCache     bool
	noMetrics   bool
}

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Layouts are cached in Redis when --redis is given and in the local cache
directory otherwise. Runs are stored in MongoDB with --mongo, in a sqlite file
with --sqlite, and in memory otherwise. Prometheus metrics are served on
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "Redis address for the shared cache")
	cmd.Flags().StringVar(&opts.redisPrefix, "redis-prefix", "fieldtrial:", "Redis key prefix")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo", "", "MongoDB URI for the run store")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", mongo.DefaultDatabase, "MongoDB database")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite", "", "sqlite file for the run store")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "do not serve /metrics")
	cmd.MarkFlagsMutuallyExclusive("mongo", "sqlite")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	var metrics *server.Metrics
	if !opts.noMetrics {
		metrics = server.NewMetrics()
		metrics.Register()
	}

	cc, err := c.serverCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cache.Instrument(cc), nil, c.Logger)
	defer runner.Close()

	st, err := c.serverStore(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(server.Config{
		Addr:    opts.addr,
		Runner:  runner,
		Store:   st,
		Logger:  c.Logger,
		Metrics: metrics,
	})
	return srv.ListenAndServe(ctx)
}

func (c *CLI) serverCache(ctx context.Context, opts serveOpts) (cache.Cache, error) {
	switch {
	case opts.noCache:
		return cache.NewNullCache(), nil
	case opts.redisAddr != "":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: opts.redisAddr, Prefix: opts.redisPrefix})
		if err != nil {
			return nil, err
		}
		c.Logger.Info("using redis cache", "addr", opts.redisAddr)
		return rc, nil
	default:
		return newCache(false)
	}
}

func (c *CLI) serverStore(ctx context.Context, opts serveOpts) (store.Store, error) {
	switch {
	case opts.mongoURI != "":
		s, err := mongo.Connect(ctx, mongo.Options{URI: opts.mongoURI, Database: opts.mongoDB})
		if err != nil {
			return nil, fmt.Errorf("connect run store: %w", err)
		}
		c.Logger.Info("using mongo run store", "database", opts.mongoDB)
		return s, nil
	case opts.sqlitePath != "":
		s, err := sqlite.Open(opts.sqlitePath)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("using sqlite run store", "path", s.Path())
		return s, nil
	default:
		c.Logger.Warn("runs are kept in memory and lost on exit")
		return store.NewMemoryStore(), nil
	}
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/sitesearch"
	"github.com/poiesic/sitesearch/config"
	"github.com/poiesic/sitesearch/reindex"
	"github.com/poiesic/sitesearch/search"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sitesearch",
		Usage: "Crawl configured sites and search them by word lemmas",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"SITESEARCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"SITESEARCH_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Set logging format (text, json)",
				Value:   "text",
				EnvVars: []string{"SITESEARCH_LOG_FORMAT"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on (overrides server.listen)",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Crawl every configured site and wait for the crawl to finish",
				Action: indexCommand,
			},
			{
				Name:      "index-page",
				Usage:     "Fetch and index a single page of a configured site",
				ArgsUsage: "URL",
				Action:    indexPageCommand,
			},
			{
				Name:      "search",
				Usage:     "Search indexed sites",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "site",
						Usage: "Restrict the search to one site URL",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of results to skip",
						Value: 0,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (0 uses search.default_limit)",
						Value: 0,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print index statistics",
				Action: statsCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the lemma index from stored pages",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "site",
						Usage: "Only reindex this site URL",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of pages to process in each batch",
						Value: reindex.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N pages",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of pages reindexed concurrently (0 = half the CPUs)",
						Value: 0,
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func openEngine(c *cli.Context) (*sitesearch.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return sitesearch.NewEngine(cfg, sitesearch.WithLogger(slog.Default()))
}

func closeEngine(engine *sitesearch.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := engine.Close(ctx); err != nil {
		slog.Error("error closing engine", "err", err)
	}
}

func serveCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	handler, err := engine.NewHandler()
	if err != nil {
		return err
	}

	listen := engine.Config().Server.Listen
	if c.IsSet("listen") {
		listen = c.String("listen")
	}
	server := &http.Server{
		Addr:              listen,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func indexCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	if len(engine.Manager().Sites()) == 0 {
		return fmt.Errorf("no sites configured")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Manager().StartIndexing(ctx); err != nil {
		return err
	}
	if err := engine.WaitIndexing(ctx, 500*time.Millisecond); err != nil {
		// Interrupted: mark unfinished sites as stopped before closing.
		if stopErr := engine.Manager().StopIndexing(context.Background()); stopErr != nil {
			slog.Warn("error stopping indexing", "err", stopErr)
		}
	}
	return printStats(c, engine)
}

func indexPageCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("index-page expects exactly one URL")
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	if err := engine.Manager().IndexPage(c.Context, c.Args().First()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Indexed %s\n", c.Args().First())
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("search expects a query")
	}
	if c.Int("offset") < 0 || c.Int("limit") < 0 {
		return search.ErrInvalidPagination
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	results, err := engine.Searcher().Search(c.Context, search.Query{
		Text:   query,
		Site:   c.String("site"),
		Offset: c.Int("offset"),
		Limit:  c.Int("limit"),
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "%d results\n", results.Count)
	for _, item := range results.Items {
		fmt.Fprintf(out, "\n%.3f  %s%s\n", item.Relevance, item.SiteURL, item.Path)
		fmt.Fprintf(out, "       %s\n", item.Title)
		fmt.Fprintf(out, "       %s\n", item.Snippet)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)
	return printStats(c, engine)
}

func printStats(c *cli.Context, engine *sitesearch.Engine) error {
	statistics, err := engine.Statistics().Statistics(c.Context)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SITE\tSTATUS\tPAGES\tLEMMAS\tERROR\n")
	for _, d := range statistics.Detailed {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", d.URL, d.Status, d.Pages, d.Lemmas, d.Error)
	}
	fmt.Fprintf(w, "TOTAL (%d sites)\t\t%d\t%d\t\n", statistics.Total.Sites, statistics.Total.Pages, statistics.Total.Lemmas)
	return w.Flush()
}

func reindexCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	cfg := reindex.DefaultConfig()
	cfg.BatchSize = c.Int("batch-size")
	cfg.ReportInterval = c.Int("report-interval")
	if c.Int("workers") > 0 {
		cfg.Workers = c.Int("workers")
	}

	slog.Info("starting reindex", "site", c.String("site"), "batch_size", cfg.BatchSize)
	summary, err := engine.Reindex(c.Context, c.String("site"), cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	slog.Info("reindex complete", "sites", summary.Sites, "pages", summary.Pages, "elapsed", summary.Elapsed)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(c.String("log-format")) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.String("log-format"))
	}
	slog.SetDefault(slog.New(handler))

	return nil
}

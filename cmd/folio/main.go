package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/pellmark/folio/internal"
	"github.com/pellmark/folio/internal/docservice"
	"github.com/pellmark/folio/internal/index"
	"github.com/pellmark/folio/internal/lint"
	"github.com/pellmark/folio/internal/mcpserver"
	"github.com/pellmark/folio/internal/render"
	"github.com/pellmark/folio/internal/site"
	"github.com/pellmark/folio/internal/storage"
	pkgconfig "github.com/pellmark/folio/pkg/config"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	path := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadIfPresent(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v := cmd.String("output"); v != "" {
		cfg.Site.Output = v
	}
	if v := cmd.String("base-url"); v != "" {
		cfg.Site.BaseURL = v
	}

	// Build logs go to stderr so stdout stays a clean summary.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Corpus.Path, storage.WithIgnore(cfg.Corpus.Ignore...))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	builder := site.New(site.Config{
		Title:     cfg.Site.Title,
		BaseURL:   cfg.Site.BaseURL,
		OutputDir: cfg.Site.Output,
		Workers:   cfg.Site.Workers,
		Clean:     cmd.Bool("clean"),
	}, store, logger)

	res, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("built %d pages and %d assets in %s -> %s\n",
		res.Pages, res.Assets, res.Duration.Round(time.Millisecond), cfg.Site.Output)
	return nil
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.NewFS(cfg.Corpus.Path, storage.WithIgnore(cfg.Corpus.Ignore...))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	report, err := lint.New(store).Run(ctx)
	if err != nil {
		return fmt.Errorf("lint failed: %w", err)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	case "text":
		for _, issue := range report.Issues {
			if issue.Line > 0 {
				fmt.Printf("%s:%d [%s] %s: %s\n", issue.Path, issue.Line, issue.Rule, issue.Severity, issue.Message)
			} else {
				fmt.Printf("%s [%s] %s: %s\n", issue.Path, issue.Rule, issue.Severity, issue.Message)
			}
		}
		fmt.Printf("%d document(s), %d error(s), %d warning(s)\n",
			report.Documents, report.Errors(), report.Warnings())
	}

	if !report.Clean() {
		return fmt.Errorf("%d lint error(s)", report.Errors())
	}
	return nil
}

func runPreview(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: folio preview <file>")
	}

	data, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	out, err := render.Term(string(data), 0)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	fmt.Print(out)
	return nil
}

func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Stdout carries the MCP protocol, so logs must go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Corpus.Path, storage.WithIgnore(cfg.Corpus.Ignore...))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := docservice.NewService(store, db)
	return mcpserver.New(svc, store).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:    "folio",
		Usage:   "Markdown documentation server with full-text search, linting, static site export, and an MCP interface",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("FOLIO_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the documentation HTTP server",
				Action: runServe,
			},
			{
				Name:  "build",
				Usage: "Render the corpus into a static site",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (overrides config)",
					},
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "Absolute base URL for sitemap and robots.txt (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "clean",
						Usage: "Remove the output directory before building",
					},
				},
				Action: runBuild,
			},
			{
				Name:  "check",
				Usage: "Lint the corpus and exit non-zero on contract errors",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "text",
						Usage: "Report format: text or json",
					},
				},
				Action: runCheck,
			},
			{
				Name:      "preview",
				Usage:     "Render one Markdown file to the terminal",
				ArgsUsage: "<file>",
				Action:    runPreview,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the corpus to AI agents over MCP stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

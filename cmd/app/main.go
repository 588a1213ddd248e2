package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/othala/internal"
	"github.com/starford/othala/internal/kbservice"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/store"
	"github.com/starford/othala/internal/transfer"
	pkgconfig "github.com/starford/othala/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

// openService opens the store and builds a service for the one-shot commands
// (export, import, mcp). The caller must invoke the returned cleanup.
func openService(cfg *internal.Config) (*kbservice.Service, func(), error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return kbservice.NewService(db), func() { _ = db.Close() }, nil
}

// resolveUserKey picks the --user-key flag, falling back to the config default.
func resolveUserKey(cmd *cli.Command, cfg *internal.Config) (string, error) {
	key := cmd.String("user-key")
	if key == "" {
		key = cfg.MCP.UserKey
	}
	if key == "" {
		return "", fmt.Errorf("user key is required (--user-key or mcp.user_key in config)")
	}
	return key, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	key, err := resolveUserKey(cmd, cfg)
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fsys, err := storage.NewFS(cmd.String("dir"))
	if err != nil {
		return err
	}
	n, err := transfer.Export(ctx, svc, fsys, key, slog.Default())
	if err != nil {
		return err
	}
	fmt.Printf("exported %d notes\n", n)
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	key, err := resolveUserKey(cmd, cfg)
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fsys, err := storage.NewFS(cmd.String("dir"))
	if err != nil {
		return err
	}
	n, err := transfer.Import(ctx, svc, fsys, key, slog.Default())
	if err != nil {
		return err
	}
	fmt.Printf("imported %d notes\n", n)
	return nil
}

func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	key, err := resolveUserKey(cmd, cfg)
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpserver.New(svc, key).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	userKeyFlag := &cli.StringFlag{
		Name:    "user-key",
		Usage:   "User key to operate under (defaults to mcp.user_key from config)",
		Sources: cli.EnvVars("OTHALA_USER_KEY"),
	}
	dirFlag := &cli.StringFlag{
		Name:     "dir",
		Usage:    "Directory of Markdown note files",
		Required: true,
	}

	cmd := &cli.Command{
		Name:   "othala",
		Usage:  "Personal knowledge base with notes, tags, and a backlink graph",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: serve,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "export",
				Usage:  "Export one user's notes to a directory of Markdown files",
				Action: runExport,
				Flags:  []cli.Flag{configFlag, userKeyFlag, dirFlag},
			},
			{
				Name:   "import",
				Usage:  "Import Markdown files as notes, resolving [[wikilinks]] into links",
				Action: runImport,
				Flags:  []cli.Flag{configFlag, userKeyFlag, dirFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio for one user key",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag, userKeyFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lexdesk/internal"
	"github.com/starford/lexdesk/internal/auth"
	pkgconfig "github.com/starford/lexdesk/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func backupExport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := os.Stdout
	if path := cmd.String("output"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	return internal.ExportBackup(ctx, out, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func backupRestore(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("backup file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return internal.RestoreBackup(ctx, f, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func syncAction(direction string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return internal.SyncOnce(ctx, direction,
			internal.WithConfig(cfg),
			internal.WithLogOutput(os.Stderr),
			internal.WithPrincipal(cmd.String("as")))
	}
}

func hashPassword(_ context.Context, cmd *cli.Command) error {
	pw := cmd.Args().First()
	if pw == "" {
		return fmt.Errorf("password is required")
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func asFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "as",
		Usage: "Account id whose profile selects the tenant (defaults to the local tenant)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "lexdesk",
		Usage:  "Local-first law office records with optional cloud sync",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only office tools over MCP stdio",
				Action: mcp,
			},
			{
				Name:  "backup",
				Usage: "Export or restore a backup file",
				Commands: []*cli.Command{
					{
						Name:   "export",
						Usage:  "Write a backup to stdout or --output",
						Action: backupExport,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file"},
						},
					},
					{
						Name:      "restore",
						Usage:     "Restore collections from a backup file",
						ArgsUsage: "<file>",
						Action:    backupRestore,
					},
				},
			},
			{
				Name:  "sync",
				Usage: "Run a manual cloud sync",
				Commands: []*cli.Command{
					{Name: "pull", Usage: "Replace local data with the cloud copy", Action: syncAction(internal.SyncPull), Flags: []cli.Flag{asFlag()}},
					{Name: "push", Usage: "Upload local data to the cloud", Action: syncAction(internal.SyncPush), Flags: []cli.Flag{asFlag()}},
				},
			},
			{
				Name:      "hash-password",
				Usage:     "Print a bcrypt hash for an account password",
				ArgsUsage: "<password>",
				Action:    hashPassword,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lutefd/tabletop-api/internal/config"
	"github.com/lutefd/tabletop-api/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dir        string
		down       bool
	)
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply SQL migrations to the session database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return migrate(ctx, cfg.DatabaseURL, dir, down, logger)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "tabletop.toml", "path to the TOML config file")
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding *.up.sql and *.down.sql files")
	cmd.Flags().BoolVar(&down, "down", false, "apply down migrations in reverse order")
	return cmd
}

func migrate(ctx context.Context, dsn, dir string, down bool, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	suffix := ".up.sql"
	if down {
		suffix = ".down.sql"
	}
	files, err := listMigrations(dir, suffix)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if down {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		logger.Info("applied migration", zap.String("file", file))
	}
	return nil
}

func listMigrations(root, suffix string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

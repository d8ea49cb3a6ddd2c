package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/semsearch/internal/app"
	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
)

var (
	configPath string
	envName    string
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load entities into the semantic search collections",
	Long: `Streams services, users, shops and products out of the relational
database, embeds them and upserts them into their vector collections.
Collections are created when missing and never dropped unless asked
through the recreate command.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name (default: $ENV or local)")
}

// loadConfig resolves the config file from the flags.
func loadConfig() (config.Config, string, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}

// openContext loads config, builds the logger and the service context.
func openContext(ctx context.Context, opts app.Options) (*app.Context, error) {
	cfg, env, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	svc, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return svc, nil
}

func closeContext(svc *app.Context) {
	svc.Close()
	_ = svc.Logger.Sync()
}

// parseEntities maps --entity values to types. Values may be comma separated.
// No values selects every type.
func parseEntities(values []string) ([]entity.Type, error) {
	var out []entity.Type
	seen := make(map[entity.Type]bool)
	for _, v := range values {
		for name := range strings.SplitSeq(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			t, err := entity.Parse(name)
			if err != nil {
				return nil, err
			}
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func printReports(cmd *cobra.Command, reports []ingest.Report) {
	for _, r := range reports {
		cmd.Printf("%-8s %-20s inserted=%d failed=%d recreated=%t took=%s\n",
			r.Entity, r.Collection, r.Inserted, r.Failed, r.Recreated, r.Duration.Round(time.Millisecond))
	}
}

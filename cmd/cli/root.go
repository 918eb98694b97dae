// Package cli implements the grabpic-admin operator commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

var configPath string

// rootCmd represents the base command when `grabpic-admin` is called without any subcommands.
// rootCmd 代表在没有任何子命令的情况下调用 `grabpic-admin` 时的基本命令。
var rootCmd = &cobra.Command{
	Use:   "grabpic-admin",
	Short: "A CLI tool for administering the GrabPic API.",
	Long: `grabpic-admin runs operator tasks against the GrabPic API backing stores,
such as applying schema migrations and inspecting rate limit buckets.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing config.yaml")
}

// Execute parses the command line and runs the selected command.
// Execute 解析命令行并执行相应的命令；出错时打印错误并退出。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration the same way the server does, with a quiet console logger.
func loadConfig() (*config.Config, logger.Logger, error) {
	_ = godotenv.Load()

	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "warn", Format: "console"})
	if err != nil {
		return nil, nil, err
	}

	var paths []string
	if configPath != "" {
		paths = append(paths, configPath)
	}
	cfg, err := config.NewLoader(log, paths...).Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

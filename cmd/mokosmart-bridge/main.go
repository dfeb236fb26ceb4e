package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"mokosmart/internal/config"
	"mokosmart/internal/constants"
	"mokosmart/internal/logger"
	"mokosmart/pkg/cel"
	"mokosmart/pkg/logging"
)

var (
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceName,
		Short: "MOKOSmart gateway to raddec bridge",
		Long:  "Listens for MOKOSmart gateway messages over MQTT and emits raddecs and infrastructure messages",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (optional, defaults and environment are used otherwise)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(earlyLog *logging.EarlyLog) (*config.Config, error) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile == "" {
		earlyLog.Info("No config file given, using defaults and environment")
	}
	return config.Load(configFile)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(constants.ServiceName)

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				earlyLog.Fatal("Failed to load config: %v", err)
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Fatal("Failed to init logger: %v", err)
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting MOKOSmart bridge")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			log.InfowCtx(ctx, "Service running")
			runErr := app.Run(ctx)
			if err := app.Shutdown(ctx); err != nil {
				log.ErrorwCtx(ctx, "Shutdown failed", "error", err)
			}
			if runErr != nil && runErr != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", runErr)
				return runErr
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and emission filter, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(constants.ServiceName)

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			if cfg.Emission.Filter == "" {
				earlyLog.Info("No emission filter configured, for example:")
				names := make([]string, 0, len(cel.FilterExpressionExamples))
				for name := range cel.FilterExpressionExamples {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					earlyLog.Info("  %-20s %s", name, cel.FilterExpressionExamples[name])
				}
			} else {
				evaluator, err := cel.NewEvaluator()
				if err != nil {
					return err
				}
				if err := evaluator.ValidateFilterExpression(cfg.Emission.Filter); err != nil {
					return fmt.Errorf("invalid emission filter: %w", err)
				}
			}

			earlyLog.Info("Configuration is valid")
			return nil
		},
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/govuk-one-login/go-simulator/pkg/config"
	"github.com/govuk-one-login/go-simulator/pkg/prettylog"
	"github.com/govuk-one-login/go-simulator/pkg/simulator"
)

var (
	verbose    = false
	configFile = ""
	keyFile    = ""

	rootCmd = &cobra.Command{
		Use:   "simulator",
		Short: "GOV.UK One Login Simulator",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			godotenv.Load()

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			if os.Getenv("PRETTY_LOGS") != "false" {
				slog.SetDefault(slog.New(prettylog.NewHandler(logLevel)))
			} else {
				slog.SetLogLoggerLevel(logLevel)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("GOV.UK One Login Simulator v%s\n", simulator.Version)
		},
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the simulator",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.NewFromEnv()
			if configFile != "" {
				if err := cfg.LoadFile(configFile); err != nil {
					slog.Error("Failed to load config file", "error", err, "path", configFile)
					os.Exit(1)
				}
			}

			opts := []simulator.Option{simulator.WithConfig(cfg)}
			if keyFile != "" {
				opts = append(opts, simulator.WithKeyFromFile(keyFile))
			}

			server, err := simulator.NewServer(opts...)
			if err != nil {
				slog.Error("Failed to create simulator", "error", err)
				os.Exit(1)
			}

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.Recover())
			server.MountRoutes(e.Group(""))

			for _, route := range e.Routes() {
				slog.Debug("Route", "method", route.Method, "path", route.Path)
			}

			address := ":" + envOr("PORT", "3000")
			slog.Info(fmt.Sprintf("starting GOV.UK One Login Simulator v%s at %s", simulator.Version, address))
			e.Logger.Fatal(e.Start(address))
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	startCmd.Flags().StringVarP(&configFile, "config-file", "f", "", "YAML configuration file")
	startCmd.Flags().StringVarP(&keyFile, "key-file", "k", "", "JWK signing key file")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

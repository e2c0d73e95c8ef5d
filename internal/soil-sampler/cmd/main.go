package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	soilSampler "github.com/LeonardoBeccarini/agro_advisor/internal/soil-sampler"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	gatewayURL  string
	timeout     time.Duration
	seed        int64
	logLevel    string
	catalogPath string
	lat, lon    float64
	useGrids    bool

	interval time.Duration
	count    int
)

var rootCmd = &cobra.Command{
	Use:   "soil-sampler",
	Short: "Drives the advisor gateway with synthetic soil samples",
	Long: `soil-sampler generates random-walk soil readings (N, P, K, climate)
and submits them to the gateway's JSON endpoints: a crop recommendation first,
then a fertilizer recommendation for the top crop.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sample continuously at a fixed interval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, logger, err := newSampler(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("sampler started", "gateway", gatewayURL, "interval", interval, "count", count)
		ok, failed := s.Run(cmd.Context(), interval, count)
		logger.Info("sampler stopped", "ok", ok, "failed", failed)
		if ok == 0 && failed > 0 {
			return fmt.Errorf("all %d rounds failed", failed)
		}
		return nil
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run one round and print it as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, _, err := newSampler(cmd.Context())
		if err != nil {
			return err
		}
		round, err := s.Once(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(round)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&gatewayURL, "gateway", envOr("GATEWAY_URL", "http://localhost:5009"), "gateway base URL")
	pf.DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	pf.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	pf.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug|info|warn|error")
	pf.StringVar(&catalogPath, "catalog", os.Getenv("CATALOG_PATH"), "catalog YAML (default: embedded)")
	pf.Float64Var(&lat, "lat", 41.51109, "latitude for the SoilGrids pH seed")
	pf.Float64Var(&lon, "lon", 12.37007, "longitude for the SoilGrids pH seed")
	pf.BoolVar(&useGrids, "soilgrids", false, "seed pH from SoilGrids once at startup")

	runCmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "time between rounds")
	runCmd.Flags().IntVar(&count, "count", 0, "stop after n rounds (0 = forever)")

	rootCmd.AddCommand(runCmd, onceCmd)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newSampler(ctx context.Context) (*soilSampler.Sampler, *slog.Logger, error) {
	logger, _ := logging.Setup("soil-sampler", os.Getenv("LOG_FILE"), logging.ParseLevel(logLevel))
	cat, err := entities.LoadCatalog(catalogPath)
	if err != nil {
		return nil, nil, err
	}
	gen := soilSampler.NewDataGenerator(seed)
	if useGrids {
		if err := gen.SeedFromSoilGrids(ctx, lat, lon); err != nil {
			logger.Warn("soilgrids seed failed, using defaults", "error", err)
		}
	}
	return soilSampler.NewSampler(gatewayURL, timeout, gen, cat, logger), logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

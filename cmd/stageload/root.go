package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"stageload/internal/config"
	"stageload/internal/metrics"
	"stageload/internal/metrics/datadog"
	"stageload/internal/metrics/prompush"
)

// errOut is where validation issues and diagnostics go; a variable so tests
// can capture it.
var errOut io.Writer = os.Stderr

var (
	metricsBackendFlg string
	pushGatewayURLFlg string
	dogstatsdAddrFlg  string
)

var rootCmd = &cobra.Command{
	Use:   "stageload",
	Short: "Load delimited and JSON files into typed, queryable staging tables",
	Long: `stageload ingests delimited-text and newline-delimited JSON files,
coerces each row to a declared schema (with unit and timezone
normalization), appends accepted rows to a sink, and answers
time-bucketed aggregate queries over the result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initMetrics()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsBackendFlg, "metrics-backend", "none",
		"metrics backend to use (none, pushgateway, datadog)")
	rootCmd.PersistentFlags().StringVar(&pushGatewayURLFlg, "pushgateway-url", "http://localhost:9091",
		"Prometheus Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	rootCmd.PersistentFlags().StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "127.0.0.1:8125",
		"DogStatsD address for the datadog backend")
}

// initMetrics installs the selected metrics backend.
func initMetrics() error {
	switch metricsBackendFlg {
	case "", "none":
		return nil
	case "pushgateway":
		url := pushGatewayURLFlg
		if env := os.Getenv("PUSHGATEWAY_URL"); env != "" {
			url = env
		}
		b, err := prompush.NewBackend("stageload", url)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: dogstatsdAddrFlg, Namespace: "stageload."})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	default:
		return fmt.Errorf("unknown metrics backend %q", metricsBackendFlg)
	}
	return nil
}

// loadPipelineFile decodes one pipeline config from disk.
func loadPipelineFile(path string) (config.Pipeline, error) {
	var p config.Pipeline
	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return p, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

func main() {
	err := rootCmd.Execute()
	if ferr := metrics.Flush(); ferr != nil {
		log.Printf("metrics flush: %v", ferr)
	}
	if err != nil {
		os.Exit(1)
	}
}

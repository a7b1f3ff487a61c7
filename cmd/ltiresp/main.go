package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/ltiresp/internal/config"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/logging"
)

var (
	configFile string
	dataDir    string
	logLevel   string

	numStr     string
	denStr     string
	timePoints int
	timeEnd    float64
	preset     string
	classFlag  string
	saveRun    bool
	jsonOut    bool

	plotWidth  int
	plotHeight int
	themeName  string
	outPath    string
	imgFormat  string
	listenAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ltiresp",
		Short:         "time responses of continuous transfer functions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "run storage directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "simulate step, impulse and ramp responses",
		Args:  cobra.NoArgs,
		RunE:  runAnalyze,
	}
	addRequestFlags(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&saveRun, "save", false, "store the run")
	analyzeCmd.Flags().BoolVar(&jsonOut, "json", false, "print the analysis as JSON")
	analyzeCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")
	analyzeCmd.Flags().StringVar(&themeName, "theme", "classic", "color theme")
	analyzeCmd.Flags().StringVar(&classFlag, "class", "", "plot only this response: step, impulse or ramp")

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "interactive response viewer",
		Args:  cobra.NoArgs,
		RunE:  runView,
	}
	addRequestFlags(viewCmd)
	viewCmd.Flags().StringVar(&themeName, "theme", "classic", "color theme")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run (latest if omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 0, "plot width (0 keeps one column per sample)")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")
	plotCmd.Flags().StringVar(&themeName, "theme", "classic", "color theme")
	plotCmd.Flags().StringVar(&classFlag, "class", "", "plot only this response: step, impulse or ramp")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&outPath, "out", "", "output file (stdout if empty)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored run as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&outPath, "out", "", "output file (stdout if empty)")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render a stored run to image files",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportImages,
	}
	exportPNGCmd.Flags().StringVar(&outPath, "out", "plots", "output directory")
	exportPNGCmd.Flags().StringVar(&imgFormat, "format", "png", "png, svg, pdf or jpg")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", config.DefaultAddr, "listen address")

	batchCmd := &cobra.Command{
		Use:   "batch [file.yaml]",
		Short: "analyze every system listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&saveRun, "save", false, "store successful runs")
	batchCmd.Flags().BoolVar(&jsonOut, "json", false, "print the analyses as JSON")

	rootCmd.AddCommand(analyzeCmd, viewCmd, plotCmd, listCmd, exportJSONCmd, exportCSVCmd,
		exportPNGCmd, presetsCmd, serveCmd, batchCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&numStr, "num", "", "numerator coefficients, highest power first")
	cmd.Flags().StringVar(&denStr, "den", "", "denominator coefficients, highest power first")
	cmd.Flags().IntVar(&timePoints, "points", engine.DefaultMaxTimePoints, "number of samples")
	cmd.Flags().Float64Var(&timeEnd, "time", engine.DefaultMaxTimeEnd, "final time in seconds")
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset system")
}

// loadConfig layers the config file, LTIRESP_* variables and explicit flags
// over the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("data") {
		cfg.Storage.DataDir = dataDir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = listenAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level)
}

func setup(cmd *cobra.Command) (*config.Config, *engine.Engine, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)
	eng, err := engine.New(cfg.Engine(), engine.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, eng, logger, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-compressor-go/internal/batch"
	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/discovery"
	"image-compressor-go/internal/inspector"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/metadata"
	"image-compressor-go/internal/statistics"
	"image-compressor-go/internal/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK          = 0
	exitPartial     = 1
	exitConfigError = 2
)

var (
	cfgFile   string
	outputDir string
	inputDir  string
	quality   string
	ratio     float64
	dimension string
	verbose   bool
	quiet     bool
	port      int
)

// errPartialFailure signals that at least one image could not be saved.
var errPartialFailure = errors.New("some images could not be compressed")

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "compressor [FILES...]",
	Short: "Quickly compresses images",
	Long: `Compressor batch-resizes JPEG images into an output directory.

Images are taken from the listed FILES or, when none are given, from the
input directory (not recursive). Every image is scaled either by a ratio
(-r 0.1) or to a fixed size (-d 100x100) and written under its original
file name into the output directory.

Exit codes: 0 all images saved, 1 some images failed, 2 configuration error.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd, args)
	},
}

// inspectCmd shows image dimensions, EXIF data and the resulting target size.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show image size, EXIF data and the size it would be scaled to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts an HTTP server exposing discovery and compression:

  GET  /api/status      current state and last result
  POST /api/discover    list JPEG files of a directory
  POST /api/compress    start a batch (one at a time)
  GET  /api/statistics  statistics of the last batch
  GET  /ws              batch started/completed events`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVarP(&quality, "quality", "q", "fastest", "resampling quality: best or fastest")
	rootCmd.PersistentFlags().Float64VarP(&ratio, "ratio", "r", 0, "scale ratio, e.g. 0.1")
	rootCmd.PersistentFlags().StringVarP(&dimension, "dim", "d", "", "target dimension, e.g. 100x100")

	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "compressed", "output directory")
	rootCmd.Flags().StringVarP(&inputDir, "input-dir", "i", "", "input directory (conflicts with FILES)")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run web server on")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &config.ValidationError{Field: "flags", Message: err.Error()}
	})
}

// runCompress compresses the selected images and reports the number saved.
func runCompress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()

	copier := setupMetadata(cfg, log)
	if copier != nil {
		defer copier.Close()
	}

	comp := compressor.NewDefaultCompressor(log, stats, compressor.Options{
		JPEGQuality: cfg.Output.JPEGQuality,
		Metadata:    copier,
	})
	runner := batch.NewRunner(log, stats, discovery.NewFinder(log, stats), comp)

	job := batch.Job{
		Files:           cfg.Files,
		OutputDirectory: cfg.OutputDirectory,
		Scale:           cfg.GetScale(),
		Quality:         cfg.GetQuality(),
	}
	if cfg.IsDirectoryMode() {
		job.InputDirectory = cfg.GetInputDirectory()
	}

	summary := runner.Run(job)

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully saved %d images\n", summary.Saved)
	if verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), "\n"+stats.GetSummary())
		fmt.Fprintln(cmd.ErrOrStderr(), stats.GetErrorSummary())
	}

	if summary.Failed() > 0 {
		return fmt.Errorf("%w: %d of %d failed", errPartialFailure, summary.Failed(), summary.Requested)
	}
	return nil
}

// runInspect prints what compressing filePath would do.
func runInspect(cmd *cobra.Command, filePath string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)
	report, err := inspector.NewInspector(log).Inspect(filePath, cfg.GetScale())
	if err != nil {
		return fmt.Errorf("inspect %s: %w", filePath, err)
	}

	fmt.Fprint(cmd.OutOrStdout(), report.String())
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}

	log := setupLogger(cfg)
	copier := setupMetadata(cfg, log)
	if copier != nil {
		defer copier.Close()
	}
	server := web.NewServer(cfg, log, copier)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	fmt.Printf("Compressor API listening on http://localhost:%d\n", cfg.Server.Port)

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed to start: %w", err)
	case <-sigChan:
	}
	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	server.Wait()

	return nil
}

// loadConfig loads configuration, applies CLI overrides and validates the result.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, &config.ValidationError{Field: "config", Message: err.Error()}
	}

	flags := cmd.Flags()
	if flags.Changed("ratio") && flags.Changed("dim") {
		return nil, &config.ValidationError{Field: "scale", Message: "--ratio and --dim are mutually exclusive"}
	}
	if flags.Changed("output") {
		cfg.OutputDirectory = outputDir
	}
	if flags.Changed("input-dir") {
		cfg.InputDirectory = inputDir
	}
	if len(args) > 0 {
		cfg.Files = args
		if !flags.Changed("input-dir") {
			cfg.InputDirectory = ""
		}
	}
	if flags.Changed("quality") {
		cfg.Quality = quality
	}
	if flags.Changed("ratio") {
		r := ratio
		cfg.Scale = config.ScaleConfig{Ratio: &r}
	}
	if flags.Changed("dim") {
		cfg.Scale = config.ScaleConfig{Dimension: dimension}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    true,
		JSON:       cfg.Logging.JSON,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.InfoLevel)
		log.Warnf("Falling back to console logging: %v", err)
	}

	return log
}

// setupMetadata starts exiftool when metadata preservation is enabled.
// A missing exiftool only disables the feature.
func setupMetadata(cfg *config.Config, log *logrus.Logger) metadata.Copier {
	if !cfg.Metadata.Preserve {
		return nil
	}
	copier, err := metadata.NewExiftoolCopier(log)
	if err != nil {
		log.Warnf("Metadata will not be preserved: %v", err)
		return nil
	}
	return copier
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartialFailure):
		return exitPartial
	case config.IsValidationError(err):
		return exitConfigError
	default:
		return exitPartial
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/remaining-value/internal/config"
	"github.com/iwvelando/remaining-value/internal/export"
	"github.com/iwvelando/remaining-value/internal/presenter"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/iwvelando/remaining-value/pkg/datetime"
	"github.com/iwvelando/remaining-value/pkg/output"
	"github.com/iwvelando/remaining-value/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	// Logs go to stderr so stdout carries only the result.
	config.OutputPaths = []string{"stderr"}
	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// loadConfiguration reads the config file. A missing file at the default
// location is not an error.
func loadConfiguration(path string) (*config.Configuration, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && path == constants.DefaultConfigFile {
		return config.Default()
	}
	return config.LoadConfiguration(path)
}

type cliFlags struct {
	configLocation   string
	outputFormat     string
	logLevel         string
	values           presenter.Values
	copyToClipboard  bool
	imagePath        string
	serve            bool
	serverConfigPath string
	maxUploadSize    string
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	fset := flag.NewFlagSet("remaining-value", flag.ContinueOnError)
	fset.StringVar(&f.configLocation, "config", constants.DefaultConfigFile, "path to configuration file")
	fset.StringVar(&f.outputFormat, "output-format", "", "type of output override: pretty, markdown, json")
	fset.StringVar(&f.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	fset.StringVar(&f.values.PurchaseCurrency, "purchase-currency", "", "renewal price currency code")
	fset.StringVar(&f.values.PurchaseAmount, "purchase-amount", "", "renewal price per billing period")
	fset.StringVar(&f.values.PurchaseRate, "purchase-rate", "", "renewal currency rate override")
	fset.StringVar(&f.values.TradeCurrency, "trade-currency", "", "asking price currency code")
	fset.StringVar(&f.values.TradeAmount, "trade-amount", "", "asking price")
	fset.StringVar(&f.values.TradeRate, "trade-rate", "", "asking currency rate override")
	fset.StringVar(&f.values.CurrentDate, "current-date", "", "transaction date, YYYY-MM-DD (default today)")
	fset.StringVar(&f.values.ExpiryDate, "expiry-date", "", "service expiry date, YYYY-MM-DD")
	fset.StringVar(&f.values.BillingPeriod, "period", "", "billing period: monthly, quarterly, halfyearly, yearly, two-yearly, three-yearly, five-yearly")
	fset.BoolVar(&f.copyToClipboard, "copy", false, "copy the markdown summary to the clipboard")
	fset.StringVar(&f.imagePath, "image", "", "upload a captured summary image and print its markdown link")
	fset.BoolVar(&f.serve, "serve", false, "serve the web UI and API instead of calculating once")
	fset.StringVar(&f.serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	fset.StringVar(&f.maxUploadSize, "max-upload-size", "", "image upload limit override for -serve (e.g. 512K, 5M)")
	err := fset.Parse(args)
	return f, err
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	if err := godotenv.Load(constants.DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"warn\", \"msg\": \"failed to load %s\", \"error\": \"%v\"}\n", constants.DefaultEnvFile, err)
	}

	conf, err := loadConfiguration(flags.configLocation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", flags.configLocation, err)
		os.Exit(1)
	}

	if flags.serve {
		if err := serve(conf, flags, version); err != nil {
			fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"server failed\", \"error\": \"%v\"}\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := initializeLogger(conf.Logging, flags.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if flags.outputFormat != "" {
		outputFormat = flags.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if err := run(logger, conf, flags, outputFormat, os.Stdout); err != nil {
		logger.Error("calculation failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run performs one calculation and writes the result to stdout.
func run(logger *zap.Logger, conf *config.Configuration, flags cliFlags, outputFormat string, stdout io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var state presenter.State
	provider, closeCache, err := conf.Rates.NewProvider(logger)
	if err != nil {
		logger.Warn("exchange rates disabled",
			zap.String("op", "main.run"),
			zap.Error(err),
		)
	} else {
		defer func() { _ = closeCache() }()
		snap, err := provider.Snapshot(ctx)
		if err != nil {
			logger.Warn("exchange rates unavailable, manual rates required",
				zap.String("op", "main.run"),
				zap.Error(err),
			)
		} else {
			state, _ = state.WithRates(1, snap)
		}
	}

	now := time.Now()
	state = state.Recalculate(conf.Defaults.Apply(flags.values), datetime.Today(now))
	for _, notice := range state.Notices {
		logger.Warn(notice.Message,
			zap.String("op", "main.run"),
			zap.String("field", notice.Field),
			zap.String("kind", notice.Kind),
		)
	}
	if state.Err != nil {
		return state.Err
	}

	doc, err := state.Document(now)
	if err != nil {
		return err
	}
	if err := output.Write(stdout, outputFormat, doc); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if flags.copyToClipboard {
		err := export.Copy(export.SystemClipboard{}, export.Markdown(doc))
		fmt.Fprintln(os.Stderr, export.CopyNotice(err))
		if err != nil {
			logger.Warn("clipboard copy failed",
				zap.String("op", "main.run"),
				zap.Error(err),
			)
		}
	}

	if flags.imagePath != "" {
		image, err := os.Open(flags.imagePath)
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		defer image.Close()

		uploader := export.NewUploader(logger, conf.Export.UploadEndpoint, conf.Export.UploadTimeout)
		url, err := uploader.Upload(ctx, image)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, export.ImageMarkdown(url))
	}

	return nil
}

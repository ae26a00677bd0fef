package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/mirrorbox/mirrorbox/internal/client"
	"github.com/mirrorbox/mirrorbox/internal/client/config"
	"github.com/mirrorbox/mirrorbox/internal/utils"
	"github.com/mirrorbox/mirrorbox/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	home, _       = os.UserHomeDir()
	defaultLogDir = filepath.Join(home, ".mirrorbox", "logs")
	logFileName   = "mirrorbox.log"

	// resolved per run by loadConfig
	configFilePath string
	configFileUsed bool
)

var (
	red  = color.New(color.FgHiRed, color.Bold).SprintFunc()
	cyan = color.New(color.FgHiCyan, color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:     "mirrorbox",
	Short:   "Keep a backup folder content-identical to a source folder",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		// all good now, no usage spam on runtime errors
		cmd.SilenceUsage = true

		logger, closeLogs, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLogs()

		fmt.Println(cyan(version.ShortWithApp()))

		c, err := client.New(cfg, logger)
		if err != nil {
			return err
		}

		defer logger.Info("Bye!")
		return c.Start(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("source", "s", "", "Source folder to mirror from")
	rootCmd.PersistentFlags().StringP("backup", "b", "", "Backup folder to mirror to")
	rootCmd.PersistentFlags().StringP("logdir", "l", defaultLogDir, "Directory for the log file")
	rootCmd.PersistentFlags().Float64P("interval", "t", config.DefaultIntervalMinutes, "Backup interval (in minutes)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "MirrorBox config file")
}

func main() {
	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()

	// config path
	configFilePath = config.DefaultConfigPath
	configFileUsed = false
	if flags.Changed("config") {
		configFilePath, _ = flags.GetString("config")
	}

	// Read config file. Its values sit below flags and env in precedence, so
	// they are registered as viper defaults.
	fileCfg, err := config.Load(configFilePath)
	switch {
	case err == nil:
		configFileUsed = true
		viper.SetDefault("source_dir", fileCfg.SourceDir)
		viper.SetDefault("backup_dir", fileCfg.BackupDir)
		viper.SetDefault("log_dir", fileCfg.LogDir)
		viper.SetDefault("interval_minutes", fileCfg.IntervalMinutes)
		viper.SetDefault("verbose", fileCfg.Verbose)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("config read '%s': %w", configFilePath, err)
	}

	// Bind flags to viper
	viper.BindPFlag("source_dir", flags.Lookup("source"))
	viper.BindPFlag("backup_dir", flags.Lookup("backup"))
	viper.BindPFlag("log_dir", flags.Lookup("logdir"))
	viper.BindPFlag("interval_minutes", flags.Lookup("interval"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))

	// Set up environment variables
	viper.SetEnvPrefix("MIRRORBOX")
	viper.AutomaticEnv()

	return nil
}

func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		Path:            configFilePath,
		SourceDir:       viper.GetString("source_dir"),
		BackupDir:       viper.GetString("backup_dir"),
		LogDir:          viper.GetString("log_dir"),
		IntervalMinutes: viper.GetFloat64("interval_minutes"),
		Verbose:         viper.GetBool("verbose"),
	}

	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir
	}
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// first run: persist the effective config so later runs can omit the flags
	if !configFileUsed {
		if err := cfg.Save(configFilePath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save config to %s: %v\n", configFilePath, err)
		}
	}
	return cfg, nil
}

// setupLogger builds the console + log file logger pair. The log file is
// truncated on every start.
func setupLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	logFile := filepath.Join(cfg.LogDir, logFileName)
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: level,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	logger := slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler))
	slog.SetDefault(logger)

	closer := func() {
		logInterceptor.Close()
		file.Close()
	}
	return logger, closer, nil
}

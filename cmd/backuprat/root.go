package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/fgeck/backuprat/internal/config"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "backuprat",
	Short: "Incremental and versioned file backups to local or mounted drives",
	Long: `backuprat copies configured source folders to backup drives:
  - flat mirrors that only copy new or changed files
  - timestamped snapshots with a fixed number of versions kept
  - ignore rules for files and folders, literal or regex (r#...)
  - optional Wake-on-LAN, SSH shutdown and Telegram notifications

Use as a one-shot command with an external scheduler (cron, systemd timer, etc.)`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(noColor)
	},
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		fmt.Sprintf("config file (default %s)", config.DefaultPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(validateCmd)
}

func setupLogging(plain bool) {
	if jsonOutput {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05", NoColor: plain}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// configPath returns the config file to read.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies its output settings.
func loadConfig() (*models.Config, error) {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Newf("config file not found: %s", path)
	}

	cfg, err := config.NewParser().LoadFile(path)
	if err != nil {
		return nil, err
	}

	if noColor || !cfg.Color {
		color.NoColor = true
		setupLogging(true)
	}
	if cfg.Verbose && !quiet {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return cfg, nil
}

// exitError carries a non-zero exit code for a run that completed with problems.
type exitError struct {
	status models.RunStatus
}

func (e *exitError) Error() string {
	return "backup finished with status: " + e.status.String()
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.status.ExitCode()
		}
		return 1
	}
	return 0
}

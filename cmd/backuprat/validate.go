package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/fgeck/backuprat/internal/config"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/fgeck/backuprat/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	dumpConfig bool
	checkHosts bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without copying anything.

With --dump the effective configuration, defaults filled in, is printed as TOML.
With --check-hosts the SSH shutdown host is contacted with a harmless command.`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	validateCmd.Flags().BoolVar(&dumpConfig, "dump", false, "print the effective configuration as TOML")
	validateCmd.Flags().BoolVar(&checkHosts, "check-hosts", false, "test the SSH connection to the shutdown host")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Str("file", configPath()).Msg("failed to load config")
		return err
	}

	out := cmd.OutOrStdout()
	if dumpConfig {
		data, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	color.New(color.FgGreen, color.Bold).Fprintln(out, "Configuration is valid!")
	printConfig(out, cfg)

	if checkHosts && cfg.SSHShutdown != nil {
		return checkSSH(cmd.Context(), out, *cfg.SSHShutdown)
	}
	return nil
}

func printConfig(w io.Writer, cfg *models.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global:")
	fmt.Fprintf(w, "  Multi-threaded: %v\n", cfg.Global.MultiThreaded)
	if cfg.Global.ThreadCount > 0 {
		fmt.Fprintf(w, "  Threads: %d\n", cfg.Global.ThreadCount)
	} else {
		fmt.Fprintln(w, "  Threads: auto")
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Targets (%d):\n", len(cfg.Targets))
	for _, t := range cfg.Targets {
		fmt.Fprintf(w, "  %s\n", t.Name())
		fmt.Fprintf(w, "    Source: %s\n", t.SourcePath)
		fmt.Fprintf(w, "    Destination: %s\n", t.DestinationRoot)
		if t.Versioned() {
			fmt.Fprintf(w, "    Mode: versioned, keep %d\n", t.KeepNum)
		} else {
			fmt.Fprintf(w, "    Mode: flat, always copy %v\n", t.AlwaysCopy)
		}
		fmt.Fprintf(w, "    Workers: %d\n", t.Workers(cfg.Global))
		if t.Optional {
			fmt.Fprintln(w, "    Optional: true")
		}
		if len(t.IgnoreFiles) > 0 {
			fmt.Fprintf(w, "    Ignore files: %s\n", joinPatterns(t.IgnoreFiles))
		}
		if len(t.IgnoreFolders) > 0 {
			fmt.Fprintf(w, "    Ignore folders: %s\n", joinPatterns(t.IgnoreFolders))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Optional Features:")
	fmt.Fprintf(w, "  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Fprintf(w, "  SSH Shutdown: %v\n", cfg.SSHShutdown != nil)
	fmt.Fprintf(w, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WOL Configuration:")
		fmt.Fprintf(w, "  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Fprintf(w, "  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		if cfg.WOL.PollURL != "" {
			fmt.Fprintf(w, "  Poll URL: %s\n", cfg.WOL.PollURL)
		}
	}

	if cfg.SSHShutdown != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "SSH Shutdown Configuration:")
		fmt.Fprintf(w, "  Host: %s\n", cfg.SSHShutdown.Host)
		fmt.Fprintf(w, "  Port: %d\n", cfg.SSHShutdown.Port)
		fmt.Fprintf(w, "  Username: %s\n", cfg.SSHShutdown.Username)
		fmt.Fprintf(w, "  OS: %s\n", cfg.SSHShutdown.OS)
		fmt.Fprintf(w, "  Shutdown Delay: %d minute(s)\n", cfg.SSHShutdown.ShutdownDelay)
		fmt.Fprintf(w, "  Only on success: %v\n", cfg.SSHShutdown.OnlyOnSuccess)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Telegram Configuration:")
		fmt.Fprintf(w, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintln(w, "  Bot Token: (configured)")
	}
}

func joinPatterns(patterns []models.Pattern) string {
	raws := make([]string, len(patterns))
	for i, p := range patterns {
		raws[i] = p.String()
	}
	return strings.Join(raws, ", ")
}

func checkSSH(ctx context.Context, w io.Writer, cfg models.SSHShutdownConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	fmt.Fprintln(w)
	result, err := ssh.New(log.Logger).TestConnection(ctx, cfg)
	if err == nil {
		err = result.Error
	}
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(w, "SSH %s: %v\n", cfg.Host, err)
		return errors.Wrapf(err, "checking ssh host %s", cfg.Host)
	}
	color.New(color.FgGreen).Fprintf(w, "SSH %s: reachable\n", cfg.Host)
	return nil
}

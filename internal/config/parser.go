// Package config provides configuration file parsing.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/spf13/viper"
)

// DefaultKeepNum keeps a single, flat copy of each target.
const DefaultKeepNum = 1

// rawTarget mirrors one [[target]] table of the config file.
type rawTarget struct {
	Tag           string   `mapstructure:"tag"`
	Path          string   `mapstructure:"path"`
	TargetPath    string   `mapstructure:"target_path"`
	IgnoreFiles   []string `mapstructure:"ignore_files"`
	IgnoreFolders []string `mapstructure:"ignore_folders"`
	Optional      bool     `mapstructure:"optional"`
	KeepNum       *int     `mapstructure:"keep_num"`
	AlwaysCopy    bool     `mapstructure:"always_copy"`
	MultiThreaded *bool    `mapstructure:"multi_threaded"`
	Threads       *int     `mapstructure:"threads"`
}

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("multi_threaded", true)
	v.SetDefault("threads", 0)
	v.SetDefault("verbose", false)
	v.SetDefault("color", true)
	return &Parser{v: v}
}

// DefaultPath returns the config location used when none is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "backup-rat", "config.toml")
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{
		Global: models.GlobalSettings{
			MultiThreaded: p.v.GetBool("multi_threaded"),
			ThreadCount:   p.v.GetInt("threads"),
		},
		Verbose: p.v.GetBool("verbose"),
		Color:   p.v.GetBool("color"),
	}

	targets, err := p.parseTargets()
	if err != nil {
		return nil, err
	}
	cfg.Targets = targets

	if cfg.WOL, err = p.parseWOL(); err != nil {
		return nil, err
	}
	if cfg.SSHShutdown, err = p.parseSSHShutdown(); err != nil {
		return nil, err
	}
	if cfg.Telegram, err = p.parseTelegram(); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Parser) parseTargets() ([]models.Target, error) {
	var raws []rawTarget
	if err := p.v.UnmarshalKey("target", &raws); err != nil {
		return nil, errors.Wrap(err, "decoding [[target]] tables")
	}

	targets := make([]models.Target, 0, len(raws))
	for i, raw := range raws {
		target, err := buildTarget(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "target %d (%s)", i+1, describe(raw))
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func buildTarget(raw rawTarget) (models.Target, error) {
	if raw.Path == "" {
		return models.Target{}, errors.New("path is required")
	}
	if raw.TargetPath == "" {
		return models.Target{}, errors.New("target_path is required")
	}

	source, err := expandPath(raw.Path)
	if err != nil {
		return models.Target{}, err
	}
	destination, err := expandPath(raw.TargetPath)
	if err != nil {
		return models.Target{}, err
	}

	ignoreFiles, err := models.CompilePatterns(raw.IgnoreFiles)
	if err != nil {
		return models.Target{}, errors.Wrap(err, "ignore_files")
	}
	ignoreFolders, err := models.CompilePatterns(raw.IgnoreFolders)
	if err != nil {
		return models.Target{}, errors.Wrap(err, "ignore_folders")
	}

	keep := DefaultKeepNum
	if raw.KeepNum != nil {
		keep = *raw.KeepNum
	}

	return models.Target{
		Tag:             raw.Tag,
		SourcePath:      source,
		DestinationRoot: destination,
		Optional:        raw.Optional,
		AlwaysCopy:      raw.AlwaysCopy,
		MultiThreaded:   raw.MultiThreaded,
		ThreadCount:     raw.Threads,
		IgnoreFiles:     ignoreFiles,
		IgnoreFolders:   ignoreFolders,
		KeepNum:         keep,
	}, nil
}

func (p *Parser) parseWOL() (*models.WOLConfig, error) {
	if !p.v.IsSet("wol") {
		return nil, nil
	}

	cfg := &models.WOLConfig{
		MACAddress:    p.v.GetString("wol.mac_address"),
		BroadcastIP:   p.v.GetString("wol.broadcast_ip"),
		PollURL:       os.ExpandEnv(p.v.GetString("wol.poll_url")),
		Timeout:       p.v.GetDuration("wol.timeout"),
		PollInterval:  p.v.GetDuration("wol.poll_interval"),
		StabilizeWait: p.v.GetDuration("wol.stabilize_wait"),
	}

	if cfg.MACAddress == "" {
		return nil, errors.New("wol.mac_address is required when wol is configured")
	}
	if cfg.BroadcastIP == "" {
		cfg.BroadcastIP = "255.255.255.255"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if !p.v.IsSet("wol.stabilize_wait") {
		cfg.StabilizeWait = 10 * time.Second
	}
	return cfg, nil
}

func (p *Parser) parseSSHShutdown() (*models.SSHShutdownConfig, error) {
	if !p.v.IsSet("ssh_shutdown") {
		return nil, nil
	}

	keyPath, err := expandPath(p.v.GetString("ssh_shutdown.key_path"))
	if err != nil {
		return nil, err
	}

	cfg := &models.SSHShutdownConfig{
		Host:          p.v.GetString("ssh_shutdown.host"),
		Port:          p.v.GetInt("ssh_shutdown.port"),
		Username:      p.v.GetString("ssh_shutdown.username"),
		KeyPath:       keyPath,
		ShutdownDelay: p.v.GetInt("ssh_shutdown.shutdown_delay"),
		OS:            p.v.GetString("ssh_shutdown.os"),
		OnlyOnSuccess: p.v.GetBool("ssh_shutdown.only_on_success"),
	}

	if cfg.Host == "" {
		return nil, errors.New("ssh_shutdown.host is required when ssh_shutdown is configured")
	}
	if cfg.KeyPath == "" {
		return nil, errors.New("ssh_shutdown.key_path is required when ssh_shutdown is configured")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Username == "" {
		cfg.Username = "root"
	}
	if !p.v.IsSet("ssh_shutdown.shutdown_delay") {
		cfg.ShutdownDelay = 1
	}
	if cfg.OS == "" {
		cfg.OS = "linux"
	}
	if cfg.OS != "linux" && cfg.OS != "windows" {
		return nil, errors.New("ssh_shutdown.os must be one of: linux, windows")
	}
	return cfg, nil
}

func (p *Parser) parseTelegram() (*models.TelegramConfig, error) {
	if !p.v.IsSet("telegram") {
		return nil, nil
	}

	cfg := &models.TelegramConfig{
		BotToken: os.ExpandEnv(p.v.GetString("telegram.bot_token")),
		ChatID:   os.ExpandEnv(p.v.GetString("telegram.chat_id")),
	}

	if cfg.BotToken == "" {
		return nil, errors.New("telegram.bot_token is required when telegram is configured")
	}
	if cfg.ChatID == "" {
		return nil, errors.New("telegram.chat_id is required when telegram is configured")
	}
	return cfg, nil
}

// expandPath expands environment variables and a leading ~ in a path.
func expandPath(path string) (string, error) {
	path = os.ExpandEnv(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "expanding ~")
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Clean(path), nil
}

func describe(raw rawTarget) string {
	if raw.Tag != "" {
		return raw.Tag
	}
	if raw.Path != "" {
		return raw.Path
	}
	return "untagged"
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if cfg.Global.ThreadCount < 0 {
		return errors.New("threads must not be negative")
	}

	for i, t := range cfg.Targets {
		if err := validateTarget(t); err != nil {
			return errors.Wrapf(err, "target %d (%s)", i+1, t.Name())
		}
	}

	return nil
}

func validateTarget(t models.Target) error {
	switch {
	case t.SourcePath == "":
		return errors.New("path is required")
	case t.DestinationRoot == "":
		return errors.New("target_path is required")
	case t.KeepNum < 1:
		return errors.Newf("keep_num must be at least 1, got %d", t.KeepNum)
	case t.ThreadCount != nil && *t.ThreadCount < 0:
		return errors.New("threads must not be negative")
	case within(t.DestinationRoot, t.SourcePath):
		return errors.New("target_path must not be inside path")
	}
	return nil
}

// within reports whether path equals dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

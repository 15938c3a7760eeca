package config

import (
	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/pelletier/go-toml/v2"
)

const redacted = "<redacted>"

type dumpConfig struct {
	MultiThreaded bool             `toml:"multi_threaded"`
	Threads       int              `toml:"threads"`
	Verbose       bool             `toml:"verbose"`
	Color         bool             `toml:"color"`
	Targets       []dumpTarget     `toml:"target"`
	WOL           *dumpWOL         `toml:"wol,omitempty"`
	SSHShutdown   *dumpSSHShutdown `toml:"ssh_shutdown,omitempty"`
	Telegram      *dumpTelegram    `toml:"telegram,omitempty"`
}

type dumpTarget struct {
	Tag           string            `toml:"tag,omitempty"`
	Path          string            `toml:"path"`
	TargetPath    string            `toml:"target_path"`
	IgnoreFiles   []models.Pattern `toml:"ignore_files"`
	IgnoreFolders []models.Pattern `toml:"ignore_folders"`
	Optional      bool              `toml:"optional"`
	KeepNum       int               `toml:"keep_num"`
	AlwaysCopy    bool              `toml:"always_copy"`
	MultiThreaded *bool             `toml:"multi_threaded,omitempty"`
	Threads       *int              `toml:"threads,omitempty"`
}

type dumpWOL struct {
	MACAddress    string `toml:"mac_address"`
	BroadcastIP   string `toml:"broadcast_ip"`
	PollURL       string `toml:"poll_url,omitempty"`
	Timeout       string `toml:"timeout"`
	PollInterval  string `toml:"poll_interval"`
	StabilizeWait string `toml:"stabilize_wait"`
}

type dumpSSHShutdown struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Username      string `toml:"username"`
	KeyPath       string `toml:"key_path"`
	ShutdownDelay int    `toml:"shutdown_delay"`
	OS            string `toml:"os"`
	OnlyOnSuccess bool   `toml:"only_on_success"`
}

type dumpTelegram struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// Dump renders cfg as TOML with every default filled in. Secrets are redacted.
func Dump(cfg *models.Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}

	out := dumpConfig{
		MultiThreaded: cfg.Global.MultiThreaded,
		Threads:       cfg.Global.ThreadCount,
		Verbose:       cfg.Verbose,
		Color:         cfg.Color,
		Targets:       make([]dumpTarget, 0, len(cfg.Targets)),
	}

	for _, t := range cfg.Targets {
		out.Targets = append(out.Targets, dumpTarget{
			Tag:           t.Tag,
			Path:          t.SourcePath,
			TargetPath:    t.DestinationRoot,
			IgnoreFiles:   t.IgnoreFiles,
			IgnoreFolders: t.IgnoreFolders,
			Optional:      t.Optional,
			KeepNum:       t.KeepNum,
			AlwaysCopy:    t.AlwaysCopy,
			MultiThreaded: t.MultiThreaded,
			Threads:       t.ThreadCount,
		})
	}

	if w := cfg.WOL; w != nil {
		out.WOL = &dumpWOL{
			MACAddress:    w.MACAddress,
			BroadcastIP:   w.BroadcastIP,
			PollURL:       w.PollURL,
			Timeout:       w.Timeout.String(),
			PollInterval:  w.PollInterval.String(),
			StabilizeWait: w.StabilizeWait.String(),
		}
	}

	if s := cfg.SSHShutdown; s != nil {
		out.SSHShutdown = &dumpSSHShutdown{
			Host:          s.Host,
			Port:          s.Port,
			Username:      s.Username,
			KeyPath:       s.KeyPath,
			ShutdownDelay: s.ShutdownDelay,
			OS:            s.OS,
			OnlyOnSuccess: s.OnlyOnSuccess,
		}
	}

	if tg := cfg.Telegram; tg != nil {
		out.Telegram = &dumpTelegram{BotToken: redacted, ChatID: tg.ChatID}
	}

	data, err := toml.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encoding config")
	}
	return data, nil
}

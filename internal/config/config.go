package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxClients is the compile-time size of the slot table.
const MaxClients = 64

type Config struct {
	Name      string `yaml:"name"`
	GameType  string `yaml:"game_type"`
	TickSpeed int    `yaml:"tick_speed"`

	MaxClients     int    `yaml:"max_clients"`
	SpectatorSlots int    `yaml:"spectator_slots"`
	TournamentMode bool   `yaml:"tournament_mode"`
	SpamProtection bool   `yaml:"spam_protection"`
	Motd           string `yaml:"motd"`

	Vote VoteConfig `yaml:"vote"`
	Race RaceConfig `yaml:"race"`

	DataDir    string `yaml:"data_dir"`
	AdminToken string `yaml:"admin_token"`

	// StartupCommands are admin console lines run once after init,
	// typically "addvote ..." entries.
	StartupCommands []string `yaml:"startup_commands,omitempty"`
}

type VoteConfig struct {
	Kick        bool          `yaml:"kick"`
	KickBantime int           `yaml:"kick_bantime"` // minutes, 0 kicks instead of banning
	Duration    time.Duration `yaml:"duration"`
}

type RaceConfig struct {
	ShowTimes  bool `yaml:"show_times"`
	ShowOthers bool `yaml:"show_others"`
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	return Config{
		Name:           "unnamed server",
		GameType:       "race",
		TickSpeed:      50,
		MaxClients:     16,
		SpectatorSlots: 0,
		SpamProtection: true,
		Vote: VoteConfig{
			Kick:        true,
			KickBantime: 0,
			Duration:    25 * time.Second,
		},
		Race: RaceConfig{
			ShowTimes:  true,
			ShowOthers: true,
		},
		DataDir: "./data",
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.GameType = strings.TrimSpace(c.GameType)
	if c.GameType == "" {
		c.GameType = "race"
	}
	if c.TickSpeed <= 0 {
		c.TickSpeed = 50
	}
	if c.MaxClients <= 0 || c.MaxClients > MaxClients {
		c.MaxClients = MaxClients
	}
	if c.Vote.Duration <= 0 {
		c.Vote.Duration = 25 * time.Second
	}
	out := c.StartupCommands[:0]
	for _, line := range c.StartupCommands {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	c.StartupCommands = out
}

func (c Config) Validate() error {
	if c.SpectatorSlots < 0 || c.SpectatorSlots >= c.MaxClients {
		return fmt.Errorf("spectator_slots %d out of range for max_clients %d", c.SpectatorSlots, c.MaxClients)
	}
	if c.Vote.KickBantime < 0 {
		return fmt.Errorf("vote.kick_bantime must not be negative")
	}
	if c.TickSpeed > 1000 {
		return fmt.Errorf("tick_speed %d too high", c.TickSpeed)
	}
	return nil
}

// ActivePlayers is the number of non-spectator places.
func (c Config) ActivePlayers() int { return c.MaxClients - c.SpectatorSlots }

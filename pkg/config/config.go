package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Configuration is the fully validated application configuration. It is
// populated once at startup from the config file and environment and not
// mutated afterwards.
type Configuration struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
	Discord    DiscordSettings
	Vatsim     VatsimSettings
	Users      UserSettings
	Aviation   AviationSettings
}

type DiscordSettings struct {
	Token                 string          `mapstructure:"token"`
	ApplicationID         string          `mapstructure:"application_id"`
	UpdateListingInterval time.Duration   `mapstructure:"update_listing_interval"`
	Guilds                []GuildSettings `mapstructure:"guilds"`
}

// GuildSettings configures one monitored guild and its listing channel.
type GuildSettings struct {
	Name      string `mapstructure:"name"`
	GuildID   string `mapstructure:"guild_id"`
	ChannelID string `mapstructure:"channel_id"`
	// AdminRoleID enables the addvatsim/removevatsim admin commands when set.
	AdminRoleID        string `mapstructure:"admin_role_id"`
	DisplayFlights     bool   `mapstructure:"display_flights"`
	DisplayControllers bool   `mapstructure:"display_controllers"`
}

type VatsimSettings struct {
	DataURL         string        `mapstructure:"data_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type UserSettings struct {
	DataDir      string        `mapstructure:"data_dir"`
	SaveInterval time.Duration `mapstructure:"save_interval"`
}

type AviationSettings struct {
	AirportsPath string `mapstructure:"airports_path"`
}

// Load reads configuration from the given file (or ./config.yaml when path
// is empty), applies environment overrides such as DISCORD_TOKEN, and
// validates the result.
func Load(path string) (*Configuration, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("discord.update_listing_interval", "1m")
	v.SetDefault("vatsim.data_url", "https://data.vatsim.net/v3/vatsim-data.json")
	v.SetDefault("vatsim.refresh_interval", "2m")
	v.SetDefault("vatsim.request_timeout", "30s")
	v.SetDefault("users.data_dir", "data")
	v.SetDefault("users.save_interval", "15s")
	v.SetDefault("aviation.airports_path", "airports.json")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only consults the environment for keys viper already
	// knows about. Keys without a default need an explicit binding or an
	// env-only value is never seen.
	for _, key := range []string{"discord.token", "discord.application_id"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Configuration
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Configuration) validate() error {
	checks := []error{
		requireString("listen_addr", c.ListenAddr),
		requireString("discord.token", c.Discord.Token),
		requireString("discord.application_id", c.Discord.ApplicationID),
		requireDuration("discord.update_listing_interval", c.Discord.UpdateListingInterval),
		requireString("vatsim.data_url", c.Vatsim.DataURL),
		requireDuration("vatsim.refresh_interval", c.Vatsim.RefreshInterval),
		requireDuration("vatsim.request_timeout", c.Vatsim.RequestTimeout),
		requireString("users.data_dir", c.Users.DataDir),
		requireDuration("users.save_interval", c.Users.SaveInterval),
		requireString("aviation.airports_path", c.Aviation.AirportsPath),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if len(c.Discord.Guilds) == 0 {
		return errors.New("at least one guild must be configured")
	}
	for i, g := range c.Discord.Guilds {
		prefix := fmt.Sprintf("discord.guilds[%d]", i)
		if err := requireString(prefix+".name", g.Name); err != nil {
			return err
		}
		if err := requireString(prefix+".guild_id", g.GuildID); err != nil {
			return err
		}
		if err := requireString(prefix+".channel_id", g.ChannelID); err != nil {
			return err
		}
		if !g.DisplayFlights && !g.DisplayControllers {
			return fmt.Errorf("%s: guild %q is not configured to display flights or controllers", prefix, g.Name)
		}
	}
	return nil
}

func requireString(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func requireDuration(name string, value time.Duration) error {
	if value <= 0 {
		return fmt.Errorf("%s must be greater than zero", name)
	}
	return nil
}

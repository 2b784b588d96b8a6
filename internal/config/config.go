package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"genreel/internal/dirs"
	"genreel/internal/util/format"
)

// EnvPrefix scopes environment overrides, e.g. GENREEL_LOG_LEVEL.
const EnvPrefix = "GENREEL"

// Keys shared by flags, env, and the config file.
const (
	KeyLocale    = "locale"
	KeyTimezone  = "timezone"
	KeyGrace     = "grace"
	KeyView      = "view"
	KeyLogLevel  = "log.level"
	KeyLogFile   = "log.file"
	KeyLogFormat = "log.format"
)

// Settings are the resolved values every command starts from.
type Settings struct {
	Locale    language.Tag
	Location  *time.Location
	Grace     time.Duration
	View      string
	LogLevel  string
	LogFile   string
	LogFormat string
}

func setDefaults() {
	viper.SetDefault(KeyLocale, "en-US")
	viper.SetDefault(KeyTimezone, "Local")
	viper.SetDefault(KeyGrace, time.Second)
	viper.SetDefault(KeyView, "compact")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFile, "")
	viper.SetDefault(KeyLogFormat, "console")
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// A missing config file is not an error; a malformed one is.
func Init(root *cobra.Command) error {
	// Ensure base directories exist
	_ = dirs.EnsureAll()

	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: GENREEL_*
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Bind root persistent flags to Viper keys
	flags := root.PersistentFlags()
	_ = viper.BindPFlag(KeyLocale, flags.Lookup("locale"))
	_ = viper.BindPFlag(KeyTimezone, flags.Lookup("timezone"))
	_ = viper.BindPFlag(KeyGrace, flags.Lookup("grace"))
	_ = viper.BindPFlag(KeyView, flags.Lookup("view"))
	_ = viper.BindPFlag(KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(KeyLogFile, flags.Lookup("log-file"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load resolves the current Viper values into Settings.
func Load() (Settings, error) {
	loc, err := loadLocation(viper.GetString(KeyTimezone))
	if err != nil {
		return Settings{}, err
	}
	grace := viper.GetDuration(KeyGrace)
	if grace < 0 {
		return Settings{}, fmt.Errorf("invalid grace %s: must not be negative", grace)
	}
	return Settings{
		Locale:    format.ParseLocale(viper.GetString(KeyLocale)),
		Location:  loc,
		Grace:     grace,
		View:      strings.ToLower(viper.GetString(KeyView)),
		LogLevel:  viper.GetString(KeyLogLevel),
		LogFile:   viper.GetString(KeyLogFile),
		LogFormat: viper.GetString(KeyLogFormat),
	}, nil
}

// ConfigFileUsed returns the config file that was read, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

func loadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

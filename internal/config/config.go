package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	PollInterval int `mapstructure:"poll_interval"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
}

// ProxyConfig holds the supervised proxy process configuration.
type ProxyConfig struct {
	Command         string   `mapstructure:"command"`
	Args            []string `mapstructure:"args"`
	PidFile         string   `mapstructure:"pid_file"`
	StartAttempts   int      `mapstructure:"start_attempts"`
	StartIntervalMs int      `mapstructure:"start_interval_ms"`
}

// TemplatesConfig holds the configuration template set location.
type TemplatesConfig struct {
	Dir    string `mapstructure:"dir"`
	Suffix string `mapstructure:"suffix"`
}

// StatusConfig holds the optional status endpoint configuration.
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Config is the top-level configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   LoggingConfig   `mapstructure:"log"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Status    StatusConfig    `mapstructure:"status"`
}

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig() error {
	// Set defaults for each sub-configuration.
	viper.SetDefault("app.poll_interval", 10)
	viper.SetDefault("log.log_level", "INFO")
	viper.SetDefault("proxy.command", "nginx")
	viper.SetDefault("proxy.args", []string{})
	viper.SetDefault("proxy.pid_file", "/var/run/nginx.pid")
	viper.SetDefault("proxy.start_attempts", 5)
	viper.SetDefault("proxy.start_interval_ms", 200)
	viper.SetDefault("templates.dir", "/etc/docker-nginx-sync/templates")
	viper.SetDefault("templates.suffix", ".tmpl")
	viper.SetDefault("status.enabled", false)
	viper.SetDefault("status.port", 8089)

	// Specify the config file details.
	viper.SetConfigName("config") // Looks for config.yaml
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // current directory

	// Read the config file if available.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &config, nil
}

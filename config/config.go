package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration for the event-publishing core.
type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker"`
	Publish PublishConfig `mapstructure:"publish"`
}

// BrokerConfig describes how to reach the broker and how to recover from
// connection loss. Every field is independently overridable from the
// environment.
type BrokerConfig struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	Username             string        `mapstructure:"username"`
	Password             string        `mapstructure:"password"`
	VHost                string        `mapstructure:"vhost"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

// PublishConfig describes publish behavior.
type PublishConfig struct {
	Exchange string `mapstructure:"exchange"`
	// Timeout bounds one publish call. Zero disables the per-call timeout,
	// which matches the reference behavior.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/eventgate")

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	// Read from environment variables, e.g. EVENTGATE_BROKER_HOST
	v.SetEnvPrefix("EVENTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if password := os.Getenv("EVENTGATE_BROKER_PASSWORD"); password != "" {
		cfg.Broker.Password = password
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Broker defaults match a stock local RabbitMQ.
	v.SetDefault("broker.host", "localhost")
	v.SetDefault("broker.port", 5672)
	v.SetDefault("broker.username", "guest")
	v.SetDefault("broker.password", "guest")
	v.SetDefault("broker.vhost", "/")
	v.SetDefault("broker.reconnect_delay", 5*time.Second)
	v.SetDefault("broker.max_reconnect_attempts", 5)

	// Publish defaults
	v.SetDefault("publish.exchange", "topic_exchange")
	v.SetDefault("publish.timeout", time.Duration(0))
}

// URL builds the AMQP connection URL.
func (b BrokerConfig) URL() string {
	vhost := b.VHost
	if vhost == "" || vhost == "/" {
		vhost = ""
	} else {
		vhost = url.PathEscape(vhost)
	}
	// Userinfo escaping differs from query escaping: a space must become
	// %20 here, not "+".
	return fmt.Sprintf("amqp://%s@%s:%d/%s",
		url.UserPassword(b.Username, b.Password).String(),
		b.Host,
		b.Port,
		vhost,
	)
}

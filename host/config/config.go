// Package config loads host tool settings from blinkmon.toml, BLINKMON_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"blinkmon/core"
	"blinkmon/sim"
)

type Config struct {
	Serial SerialConfig `mapstructure:"serial"`
	Sim    SimConfig    `mapstructure:"sim"`
	LED    LEDConfig    `mapstructure:"led"`
	MQTT   MQTTConfig   `mapstructure:"mqtt"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
}

type SerialConfig struct {
	Device        string `mapstructure:"device"`
	Baud          int    `mapstructure:"baud"`
	ReadTimeoutMs int    `mapstructure:"read_timeout_ms"`
}

type SimConfig struct {
	Pace          bool    `mapstructure:"pace"`
	HandlerCycles uint64  `mapstructure:"handler_cycles"`
	Seconds       float64 `mapstructure:"seconds"`
	Events        bool    `mapstructure:"events"`
}

type LEDConfig struct {
	Chip string `mapstructure:"chip"`
	Line int    `mapstructure:"line"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

type StoreConfig struct {
	Path    string `mapstructure:"path"`
	History int    `mapstructure:"history"`
}

type LogConfig struct {
	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

var (
	ErrInvalidBaud          = errors.New("serial.baud must be positive")
	ErrInvalidHandlerCycles = errors.New("sim.handler_cycles must be positive")
	ErrInvalidSeconds       = errors.New("sim.seconds must be positive when pacing is off")
	ErrInvalidLEDLine       = errors.New("led.line must not be negative")
	ErrMissingTopic         = errors.New("mqtt.topic is required with mqtt.broker")
	ErrInvalidHistory       = errors.New("store.history must not be negative")
)

const envPrefix = "BLINKMON"

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.device", "/dev/ttyACM0")
	v.SetDefault("serial.baud", core.SerialBaud)
	v.SetDefault("serial.read_timeout_ms", 100)
	v.SetDefault("sim.pace", true)
	v.SetDefault("sim.handler_cycles", sim.DefaultHandlerCycles)
	v.SetDefault("sim.seconds", 10.0)
	v.SetDefault("sim.events", true)
	v.SetDefault("led.chip", "")
	v.SetDefault("led.line", 0)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "blinkmon/usage")
	v.SetDefault("mqtt.client_id", "blinkmon")
	v.SetDefault("store.path", "")
	v.SetDefault("store.history", 0)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.verbose", false)
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"device":         "serial.device",
	"baud":           "serial.baud",
	"pace":           "sim.pace",
	"handler-cycles": "sim.handler_cycles",
	"seconds":        "sim.seconds",
	"events":         "sim.events",
	"led-chip":       "led.chip",
	"led-line":       "led.line",
	"mqtt-broker":    "mqtt.broker",
	"mqtt-topic":     "mqtt.topic",
	"store":          "store.path",
	"history":        "store.history",
	"debug":          "log.debug",
	"verbose":        "log.verbose",
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Configuration file (default: ./blinkmon.toml or /etc/blinkmon/blinkmon.toml)")
	fs.String("device", "", "Serial device path")
	fs.Int("baud", 0, "Serial baud rate")
	fs.Bool("pace", true, "Run the simulator in wall-clock time")
	fs.Uint64("handler-cycles", 0, "Simulated cycles charged per interrupt")
	fs.Float64("seconds", 0, "Simulated seconds to run when pacing is off")
	fs.Bool("events", true, "Record firmware interrupt events for the exit dump")
	fs.String("led-chip", "", "GPIO chip mirroring the LED (e.g. gpiochip0)")
	fs.Int("led-line", 0, "GPIO line offset mirroring the LED")
	fs.String("mqtt-broker", "", "MQTT broker URL for usage reports (e.g. tcp://localhost:1883)")
	fs.String("mqtt-topic", "", "MQTT topic for usage reports")
	fs.String("store", "", "SQLite database recording usage reports")
	fs.Int("history", 0, "Recent stored reports to log on exit")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	return fs
}

// Load parses args and merges them over the environment, the config file
// and the defaults. A pflag.ErrHelp error means usage was printed.
func Load(name string, args []string) (*Config, error) {
	fs := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("blinkmon")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/blinkmon")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Only flags given on the command line override the other sources
	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flagName, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values the tools cannot work with
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return ErrInvalidBaud
	}
	if c.Sim.HandlerCycles == 0 {
		return ErrInvalidHandlerCycles
	}
	if !c.Sim.Pace && c.Sim.Seconds <= 0 {
		return ErrInvalidSeconds
	}
	if c.LED.Line < 0 {
		return ErrInvalidLEDLine
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		return ErrMissingTopic
	}
	if c.Store.History < 0 {
		return ErrInvalidHistory
	}
	return nil
}

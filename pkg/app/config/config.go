package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"

	"irl/pkg/irprotocol"
)

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with the -overwrite command
// line option each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag      FlagConfig      `yaml:"-"`
	Rx        RxConfig        `yaml:"rx"`
	Tx        TxConfig        `yaml:"tx"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Version    bool
	Debug      string
	ConfigFile string
}

// RxConfig defines the gpio line of the IR receiver module
type RxConfig struct {
	Chip       string `yaml:"chip"`
	Gpio       int    `yaml:"gpio"`
	Terminator string `yaml:"terminator"`
}

// TxConfig defines the gpio pin of the IR LED, a negative pin disables the sender
type TxConfig struct {
	Gpio      int `yaml:"gpio"`
	DutyCycle int `yaml:"dutycycle"`
}

// DecoderConfig defines the protocol chain and the timing policy of the decoder
type DecoderConfig struct {
	// Protocols in priority order
	Protocols       []string              `yaml:"protocols"`
	ProtocolList    []irprotocol.Protocol `yaml:"-"`
	Tolerance       uint8                 `yaml:"tolerance"`
	Slack           int                   `yaml:"slack"`
	TimeoutInt      int                   `yaml:"timeout"`
	Timeout         time.Duration         `yaml:"-"`
	RepeatWindowInt int                   `yaml:"repeatwindow"`
	RepeatWindow    time.Duration         `yaml:"-"`
	PollIntervalInt int                   `yaml:"pollinterval"`
	PollInterval    time.Duration         `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection   string `yaml:"connection"`
	ClientID     string `yaml:"clientid"`
	Topic        string `yaml:"topic"`
	CommandTopic string `yaml:"commandtopic"`
	Qos          byte   `yaml:"qos"`
	Retained     bool   `yaml:"retained"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Flag: FlagConfig{},
		Rx: RxConfig{
			Chip:       "gpiochip0",
			Gpio:       18,
			Terminator: "pullup",
		},
		Tx: TxConfig{
			Gpio:      -1,
			DutyCycle: 33,
		},
		Decoder: DecoderConfig{
			ProtocolList:    irprotocol.Protocols(),
			Tolerance:       25,
			TimeoutInt:      15,
			Timeout:         15 * time.Millisecond,
			RepeatWindowInt: 120,
			RepeatWindow:    120 * time.Millisecond,
			PollIntervalInt: 20,
			PollInterval:    20 * time.Millisecond,
		},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"send":    true,
				"metrics": true,
			},
		},
		MQTT: MQTTConfig{
			Connection:   "",
			ClientID:     "irl",
			Topic:        "/ir/received",
			CommandTopic: "/ir/send",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return c.setDecoderConfig()
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}

// setDecoderConfig parses the protocol chain and converts the ms values of the decoder section.
func (c *Config) setDecoderConfig() error {
	d := &c.Decoder

	if len(d.Protocols) > 0 {
		list := make([]irprotocol.Protocol, 0, len(d.Protocols))
		for _, name := range d.Protocols {
			p, err := irprotocol.ParseProtocol(name)
			if err != nil {
				return fmt.Errorf("decoder protocols: %w", err)
			}
			list = append(list, p)
		}
		d.ProtocolList = list
	}

	if d.Tolerance > 100 {
		return fmt.Errorf("decoder tolerance %v%%: out of range", d.Tolerance)
	}
	if d.TimeoutInt <= 0 || d.RepeatWindowInt <= 0 || d.PollIntervalInt <= 0 || d.Slack < 0 {
		return fmt.Errorf("decoder timing: values must be positive")
	}

	d.Timeout = time.Duration(d.TimeoutInt) * time.Millisecond
	d.RepeatWindow = time.Duration(d.RepeatWindowInt) * time.Millisecond
	d.PollInterval = time.Duration(d.PollIntervalInt) * time.Millisecond
	return nil
}

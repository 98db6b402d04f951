// Package config loads the service tool configuration from a YAML file
// with environment overrides for secrets.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
)

// Resend configures the transactional email HTTP API client.
type Resend struct {
	APIKey   string `yaml:"APIKey"`
	Endpoint string `yaml:"Endpoint"`
}

// SMTP configures the fallback SMTP sender.
type SMTP struct {
	Host     string `yaml:"Host"`
	Port     int    `yaml:"Port"`
	Username string `yaml:"Username"`
	Password string `yaml:"Password"`
}

// Mail selects and configures the outbound email transport.
type Mail struct {
	Provider       string  `yaml:"Provider"` // resend or smtp
	From           string  `yaml:"From"`
	OfficeEmail    string  `yaml:"OfficeEmail"` // recipient of reminder notices
	ReplyTo        string  `yaml:"ReplyTo"`     // address printed in report emails for the signed scan
	TeamName       string  `yaml:"TeamName"`    // signature block in report emails
	Resend         Resend  `yaml:"Resend"`
	SMTP           SMTP    `yaml:"SMTP"`
	SendTimeoutSec int     `yaml:"SendTimeoutSec"`
	RatePerSecond  float64 `yaml:"RatePerSecond"`
}

// Probe configures the reachability monitor.
type Probe struct {
	URL         string `yaml:"URL"`
	IntervalSec int    `yaml:"IntervalSec"`
}

// Admin configures the local status HTTP server.
type Admin struct {
	Listen string `yaml:"Listen"`
}

// Config is the full tool configuration.
type Config struct {
	DataDir  string `yaml:"DataDir"`
	LogLevel string `yaml:"LogLevel"`
	Mail     Mail   `yaml:"Mail"`
	Probe    Probe  `yaml:"Probe"`
	Admin    Admin  `yaml:"Admin"`
}

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "failed to read config file", err)
	}

	var conf Config
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "failed to parse config file", err)
	}

	conf.applyEnv()
	conf.applyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// applyEnv lets secrets come from the environment so they never sit in
// the config file on the device.
func (c *Config) applyEnv() {
	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		c.Mail.Resend.APIKey = key
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		c.Mail.SMTP.Password = pass
	}
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Mail.Provider == "" {
		c.Mail.Provider = "resend"
	}
	if c.Mail.OfficeEmail == "" {
		c.Mail.OfficeEmail = c.Mail.From
	}
	if c.Mail.ReplyTo == "" {
		c.Mail.ReplyTo = c.Mail.OfficeEmail
	}
	if c.Mail.TeamName == "" {
		c.Mail.TeamName = "Zespół TAKMA"
	}
	if c.Mail.Resend.Endpoint == "" {
		c.Mail.Resend.Endpoint = "https://api.resend.com/emails"
	}
	if c.Mail.SendTimeoutSec <= 0 {
		c.Mail.SendTimeoutSec = 30
	}
	if c.Mail.RatePerSecond <= 0 {
		c.Mail.RatePerSecond = 2
	}
	if c.Probe.URL == "" {
		c.Probe.URL = "https://api.resend.com"
	}
	if c.Probe.IntervalSec <= 0 {
		c.Probe.IntervalSec = 15
	}
	if c.Admin.Listen == "" {
		c.Admin.Listen = "127.0.0.1:8090"
	}
}

// Validate checks the parts that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Mail.From == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "Mail.From is required")
	}
	switch c.Mail.Provider {
	case "resend":
		if c.Mail.Resend.APIKey == "" {
			return apperrors.New(apperrors.ErrConfigInvalid,
				"Mail.Resend.APIKey (or RESEND_API_KEY) is required for the resend provider")
		}
	case "smtp":
		if c.Mail.SMTP.Host == "" || c.Mail.SMTP.Port == 0 {
			return apperrors.New(apperrors.ErrConfigInvalid,
				"Mail.SMTP.Host and Mail.SMTP.Port are required for the smtp provider")
		}
	default:
		return apperrors.New(apperrors.ErrConfigInvalid,
			"Mail.Provider must be resend or smtp")
	}
	return nil
}

// SendTimeout returns the per-send timeout as a duration.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Mail.SendTimeoutSec) * time.Second
}

// ProbeInterval returns the reachability probe interval as a duration.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Probe.IntervalSec) * time.Second
}

// Package config loads command configuration from GATELIST_* environment
// variables, applies command-line flag overrides and validates the result.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/kardianos/gatelist"
	"github.com/kardianos/gatelist/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Log selects the slog handler.
type Log struct {
	Level  string `env:"GATELIST_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"GATELIST_LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Server configures the serve and console modes.
type Server struct {
	DataDir   string `env:"GATELIST_DATA_DIR" envDefault:"./data" validate:"required"`
	Store     string `env:"GATELIST_STORE" envDefault:"file" validate:"oneof=file bolt sqlite"`
	WriteMode string `env:"GATELIST_WRITE_MODE" envDefault:"atomic" validate:"oneof=atomic direct"`

	ApplyChannel   string `env:"GATELIST_APPLY_CHANNEL" validate:"required"`
	ApproveChannel string `env:"GATELIST_APPROVE_CHANNEL" validate:"required"`
	AdminRole      string `env:"GATELIST_ADMIN_ROLE" validate:"required"`

	ExistenceCheck string        `env:"GATELIST_EXISTENCE_CHECK" envDefault:"approval" validate:"oneof=approval submission"`
	RateInterval   time.Duration `env:"GATELIST_RATE_INTERVAL" envDefault:"60s" validate:"gt=0"`

	ResolverURL     string        `env:"GATELIST_RESOLVER_URL" envDefault:"https://playerdb.co/api/player/xbox/" validate:"required,url"`
	ResolverTimeout time.Duration `env:"GATELIST_RESOLVER_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	ReloadAddr  string `env:"GATELIST_RELOAD_ADDR" validate:"omitempty,hostname_port"`
	ReloadToken string `env:"GATELIST_RELOAD_TOKEN"`

	HTTPAddr  string `env:"GATELIST_HTTP_ADDR" envDefault:"127.0.0.1:8080" validate:"required"`
	Locale    string `env:"GATELIST_LOCALE" envDefault:"ja" validate:"required"`
	SecretDir string `env:"GATELIST_SECRET_DIR"`

	Log Log
}

// Agent configures the reload agent mode.
type Agent struct {
	Listen      string        `env:"GATELIST_AGENT_LISTEN" envDefault:":7443" validate:"required"`
	Command     string        `env:"GATELIST_AGENT_COMMAND" validate:"required"`
	Timeout     time.Duration `env:"GATELIST_AGENT_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	ReloadToken string        `env:"GATELIST_RELOAD_TOKEN"`
	SecretDir   string        `env:"GATELIST_SECRET_DIR"`

	Log Log
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseServer reads the environment, then flags from args, then validates.
func ParseServer(fs *flag.FlagSet, args []string) (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Data directory")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "Store backend: file, bolt or sqlite")
	fs.StringVar(&cfg.WriteMode, "write-mode", cfg.WriteMode, "File store write mode: atomic or direct")
	fs.StringVar(&cfg.ApplyChannel, "apply-channel", cfg.ApplyChannel, "Channel ID for applications")
	fs.StringVar(&cfg.ApproveChannel, "approve-channel", cfg.ApproveChannel, "Channel ID for reviewers")
	fs.StringVar(&cfg.AdminRole, "admin-role", cfg.AdminRole, "Role ID of reviewers")
	fs.StringVar(&cfg.ExistenceCheck, "existence-check", cfg.ExistenceCheck, "When to look up gamertags: approval or submission")
	fs.DurationVar(&cfg.RateInterval, "rate-interval", cfg.RateInterval, "Minimum time between submissions per user")
	fs.StringVar(&cfg.ResolverURL, "resolver-url", cfg.ResolverURL, "Gamertag lookup base URL")
	fs.DurationVar(&cfg.ResolverTimeout, "resolver-timeout", cfg.ResolverTimeout, "Gamertag lookup timeout")
	fs.StringVar(&cfg.ReloadAddr, "reload-addr", cfg.ReloadAddr, "Reload agent host:port; empty disables /reload")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP bridge listen address")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Default reply language")
	fs.StringVar(&cfg.SecretDir, "secrets", cfg.SecretDir, "Secret directory")
	bindLog(fs, &cfg.Log)
	if err := fs.Parse(args); err != nil {
		return Server{}, err
	}
	if err := Validate(cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// ParseAgent reads the environment, then flags from args, then validates.
func ParseAgent(fs *flag.FlagSet, args []string) (Agent, error) {
	var cfg Agent
	if err := ParseEnv(&cfg); err != nil {
		return Agent{}, err
	}
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "UDP address to listen on")
	fs.StringVar(&cfg.Command, "exec", cfg.Command, "Command that reloads the server allowlist")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Reload command timeout")
	fs.StringVar(&cfg.SecretDir, "secrets", cfg.SecretDir, "Secret directory")
	bindLog(fs, &cfg.Log)
	if err := fs.Parse(args); err != nil {
		return Agent{}, err
	}
	if err := Validate(cfg); err != nil {
		return Agent{}, err
	}
	return cfg, nil
}

func bindLog(fs *flag.FlagSet, l *Log) {
	fs.StringVar(&l.Level, "log-level", l.Level, "Log level: debug, info, warn or error")
	fs.StringVar(&l.Format, "log-format", l.Format, "Log format: text or json")
}

// Validate checks struct tags and reports every failing field.
func Validate(cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Engine returns the workflow configuration.
func (c Server) Engine() gatelist.EngineConfig {
	return gatelist.EngineConfig{
		ApplyChannel:   c.ApplyChannel,
		ReviewChannel:  c.ApproveChannel,
		ReviewerRole:   c.AdminRole,
		ExistenceCheck: gatelist.ExistenceCheck(c.ExistenceCheck),
	}
}

// StoreConfig returns the store configuration.
func (c Server) StoreConfig(log *slog.Logger) store.Config {
	return store.Config{
		Kind:      store.Kind(c.Store),
		Dir:       c.DataDir,
		WriteMode: store.WriteMode(c.WriteMode),
		Logger:    log,
	}
}

// CommandArgs splits the agent command into program and arguments.
func (c Agent) CommandArgs() (string, []string) {
	f := strings.Fields(c.Command)
	if len(f) == 0 {
		return "", nil
	}
	return f[0], f[1:]
}

// NewLogger builds a slog logger writing to w.
func NewLogger(w io.Writer, l Log) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
}

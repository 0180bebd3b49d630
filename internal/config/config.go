// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinJWTSecretLen is the minimum length of the session signing secret.
const MinJWTSecretLen = 32

// Duration is a time.Duration that reads as "10m" style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string or integer: %w", err)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabaseDSN holds the database connection string. Empty selects the
	// in-memory store.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	LogLevel    string `json:"log_level"`
	CatalogPath string `json:"catalog"`

	JWTSecret string   `json:"jwt_secret"`
	TokenTTL  Duration `json:"token_ttl"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	AdminEmails         []string `json:"admin_emails"`
	InitialBalanceCents int64    `json:"initial_balance_cents"`
	CodeTTL             Duration `json:"code_ttl"`
	CleanupInterval     Duration `json:"cleanup_interval"`
}

// Load builds Options from args, the JSON config file and the environment,
// in that order of precedence from lowest to highest.
func Load(args []string) (*Options, error) {
	o := &Options{}
	var (
		tokenTTL, codeTTL, cleanup time.Duration
		admins                     string
	)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&o.Address, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address; empty uses the in-memory store")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&o.LogLevel, "l", "info", "log level")
	fs.StringVar(&o.CatalogPath, "catalog", "", "case catalog file (.yaml or .json); empty uses the built-in catalog")
	fs.StringVar(&o.JWTSecret, "jwt-secret", "", "session signing secret (at least 32 bytes)")
	fs.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "session lifetime")
	fs.StringVar(&o.TLSCert, "tls-cert", "", "server TLS certificate")
	fs.StringVar(&o.TLSKey, "tls-key", "", "server TLS key")
	fs.StringVar(&admins, "admin-emails", "", "comma separated e-mails granted the admin role")
	fs.Int64Var(&o.InitialBalanceCents, "initial-balance", 0, "balance credited to new accounts, in cents")
	fs.DurationVar(&codeTTL, "code-ttl", 10*time.Minute, "verification code lifetime")
	fs.DurationVar(&cleanup, "cleanup-interval", 5*time.Minute, "expired record cleanup interval")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.TokenTTL = Duration(tokenTTL)
	o.CodeTTL = Duration(codeTTL)
	o.CleanupInterval = Duration(cleanup)
	o.AdminEmails = splitList(admins)

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		data, err := os.ReadFile(o.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := json.Unmarshal(data, o); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(o); err != nil {
		return nil, err
	}
	return o, nil
}

func applyEnv(o *Options) error {
	str := map[string]*string{
		"SERVER_ADDRESS": &o.Address,
		"DATABASE_DSN":   &o.DatabaseDSN,
		"LOG_LEVEL":      &o.LogLevel,
		"CATALOG_PATH":   &o.CatalogPath,
		"JWT_SECRET":     &o.JWTSecret,
		"TLS_CERT":       &o.TLSCert,
		"TLS_KEY":        &o.TLSKey,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	dur := map[string]*Duration{
		"TOKEN_TTL":        &o.TokenTTL,
		"CODE_TTL":         &o.CodeTTL,
		"CLEANUP_INTERVAL": &o.CleanupInterval,
	}
	for key, dst := range dur {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = Duration(d)
		}
	}

	if v, ok := os.LookupEnv("ADMIN_EMAILS"); ok {
		o.AdminEmails = splitList(v)
	}
	if v, ok := os.LookupEnv("INITIAL_BALANCE_CENTS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid INITIAL_BALANCE_CENTS value: %w", err)
		}
		o.InitialBalanceCents = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports configuration the server cannot start with.
func (o *Options) Validate() error {
	var errs []error
	if len(o.JWTSecret) < MinJWTSecretLen {
		errs = append(errs, fmt.Errorf("jwt secret must be at least %d bytes", MinJWTSecretLen))
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		errs = append(errs, errors.New("tls cert and key must be set together"))
	}
	if o.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if o.CodeTTL <= 0 {
		errs = append(errs, errors.New("code ttl must be positive"))
	}
	if o.CleanupInterval <= 0 {
		errs = append(errs, errors.New("cleanup interval must be positive"))
	}
	if o.InitialBalanceCents < 0 {
		errs = append(errs, errors.New("initial balance must not be negative"))
	}
	return errors.Join(errs...)
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

// Parse loads a .env file if present, then the command-line flags, config
// file and environment variables. It exits the process on invalid input.
func Parse() *Options {
	_ = godotenv.Load()

	options, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	if err := options.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return options
}

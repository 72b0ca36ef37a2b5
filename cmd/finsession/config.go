package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/avoronov/finsession/internal/logger"
)

const (
	defaultLoggingLevel = logger.LevelInfo
	defaultAuthURL      = "http://localhost:8081/realms/finance/protocol/openid-connect/token"
	defaultAPIBase      = "http://localhost:8080/api"
	defaultClientID     = "gateway"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Identity endpoint token URL
	AuthURL string

	// OAuth2 client identifier and secret for the identity endpoint
	ClientID     string
	ClientSecret string

	// Gateway base URL for the domain REST endpoints
	APIBase string

	// Where the session record is persisted. Empty means the default
	// location under the user config dir
	TokenFile string

	// Passphrase sealing the token file. Empty means plaintext
	TokenPassphrase string

	// Serve canned fixtures instead of calling the gateway
	UseMock bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel: defaultLoggingLevel,
		AuthURL:  defaultAuthURL,
		APIBase:  defaultAPIBase,
		ClientID: defaultClientID,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setBool := func(o *bool) func(value string) {
		return func(value string) {
			if parsed, err := strconv.ParseBool(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"AUTH_URL":         setString(&c.AuthURL),
		"CLIENT_ID":        setString(&c.ClientID),
		"CLIENT_SECRET":    setString(&c.ClientSecret),
		"API_BASE_URL":     setString(&c.APIBase),
		"TOKEN_FILE":       setString(&c.TokenFile),
		"TOKEN_PASSPHRASE": setString(&c.TokenPassphrase),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"USE_MOCK":         setBool(&c.UseMock),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// ParseFlags parses args and returns the positional rest (the command)
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("finsession", pflag.ContinueOnError)

	fs.StringVarP(&c.AuthURL, "auth-url", "a", c.AuthURL, "Identity endpoint token URL")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "OAuth2 client id")
	fs.StringVar(&c.ClientSecret, "client-secret", c.ClientSecret, "OAuth2 client secret")
	fs.StringVarP(&c.APIBase, "api-base", "b", c.APIBase, "Gateway API base URL")
	fs.StringVarP(&c.TokenFile, "token-file", "t", c.TokenFile, "Session record file")
	fs.StringVar(&c.TokenPassphrase, "passphrase", c.TokenPassphrase, "Passphrase sealing the token file")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.BoolVar(&c.UseMock, "mock", c.UseMock, "Use canned fixtures instead of the gateway")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return fs.Args(), nil
}

// ResolveTokenFile returns the configured token file path or the default
// location under the user config dir.
func (c *Config) ResolveTokenFile() (string, error) {
	if c.TokenFile != "" {
		return c.TokenFile, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "finsession", "tokens.json"), nil
}

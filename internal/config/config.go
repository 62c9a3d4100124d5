package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything shutter needs to reach the photo service.
type Config struct {
	APIBase         string `validate:"required,url"`
	AuthBase        string `validate:"required,url"`
	ClientID        string `validate:"required"`
	ClientSecret    string `validate:"required"`
	RedirectURI     string `validate:"required"`
	Scope           string `validate:"required"`
	PerPage         int    `validate:"gte=1,lte=30"`
	RequestsPerHour int    `validate:"gte=0"`
	CallbackAddr    string
	LogFile         string
	TokenStore      TokenStore
}

// TokenStore selects where the bearer token lives.
type TokenStore struct {
	Backend  string `validate:"omitempty,oneof=file redis memory"`
	Dir      string
	RedisURL string `validate:"required_if=Backend redis"`
}

const (
	defaultConfigPath      = "~/.config/shutter/config.toml"
	defaultEnvPath         = "~/.config/shutter/.env"
	defaultAPIBase         = "https://api.unsplash.com"
	defaultAuthBase        = "https://unsplash.com"
	defaultRedirectURI     = "urn:ietf:wg:oauth:2.0:oob"
	defaultScope           = "public+read_user+write_likes"
	defaultPerPage         = 10
	defaultRequestsPerHour = 50
	defaultLogFile         = "~/.local/share/shutter/shutter.log"
	defaultTokenDir        = "~/.local/share/shutter"

	envClientID     = "SHUTTER_CLIENT_ID"
	envClientSecret = "SHUTTER_CLIENT_SECRET"
	envRedisURL     = "SHUTTER_REDIS_URL"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load locates and parses the shutter config, falling back to defaults when
// the file is missing. Client credentials may also come from the environment
// or a .env file next to the config; the environment wins.
func Load(path string) (Config, error) {
	cfg, err := load(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadUnchecked is Load without validation, for commands that only need
// paths (logs, logout).
func LoadUnchecked(path string) (Config, error) {
	return load(path)
}

func load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()

	bytes, err := readOptional(resolved)
	if err != nil {
		return Config{}, err
	}
	if bytes != nil {
		var raw struct {
			APIBase         string `toml:"api_base"`
			AuthBase        string `toml:"auth_base"`
			ClientID        string `toml:"client_id"`
			ClientSecret    string `toml:"client_secret"`
			RedirectURI     string `toml:"redirect_uri"`
			Scope           string `toml:"scope"`
			PerPage         int    `toml:"per_page"`
			RequestsPerHour *int   `toml:"requests_per_hour"`
			CallbackAddr    string `toml:"callback_addr"`
			LogFile         string `toml:"log_file"`
			TokenStore      struct {
				Backend  string `toml:"backend"`
				Dir      string `toml:"dir"`
				RedisURL string `toml:"redis_url"`
			} `toml:"token_store"`
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.APIBase = orDefault(raw.APIBase, cfg.APIBase)
		cfg.AuthBase = orDefault(raw.AuthBase, cfg.AuthBase)
		cfg.ClientID = strings.TrimSpace(raw.ClientID)
		cfg.ClientSecret = strings.TrimSpace(raw.ClientSecret)
		cfg.RedirectURI = orDefault(raw.RedirectURI, cfg.RedirectURI)
		cfg.Scope = orDefault(raw.Scope, cfg.Scope)
		if raw.PerPage > 0 {
			cfg.PerPage = raw.PerPage
		}
		if raw.RequestsPerHour != nil {
			cfg.RequestsPerHour = *raw.RequestsPerHour
		}
		cfg.CallbackAddr = strings.TrimSpace(raw.CallbackAddr)
		cfg.LogFile = orDefault(raw.LogFile, cfg.LogFile)
		cfg.TokenStore.Backend = strings.ToLower(strings.TrimSpace(raw.TokenStore.Backend))
		cfg.TokenStore.Dir = orDefault(raw.TokenStore.Dir, cfg.TokenStore.Dir)
		cfg.TokenStore.RedisURL = strings.TrimSpace(raw.TokenStore.RedisURL)
	}

	if err := applyEnv(&cfg, filepath.Join(filepath.Dir(resolved), ".env")); err != nil {
		return Config{}, err
	}

	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	cfg.AuthBase = strings.TrimRight(cfg.AuthBase, "/")
	cfg.LogFile = mustExpand(cfg.LogFile)
	cfg.TokenStore.Dir = mustExpand(cfg.TokenStore.Dir)
	return cfg, nil
}

// Validate reports missing credentials and malformed values.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TokenURL is the authorization-code exchange endpoint.
func (c Config) TokenURL() string {
	return c.AuthBase + "/oauth/token"
}

// AuthorizeURL is the page the user signs in on.
func (c Config) AuthorizeURL() string {
	return c.AuthBase + "/oauth/authorize"
}

// LogDir returns the directory holding the log file.
func (c Config) LogDir() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return filepath.Dir(mustExpand(defaultLogFile))
	}
	return filepath.Dir(c.LogFile)
}

func defaults() Config {
	return Config{
		APIBase:         defaultAPIBase,
		AuthBase:        defaultAuthBase,
		RedirectURI:     defaultRedirectURI,
		Scope:           defaultScope,
		PerPage:         defaultPerPage,
		RequestsPerHour: defaultRequestsPerHour,
		LogFile:         defaultLogFile,
		TokenStore:      TokenStore{Backend: "file", Dir: defaultTokenDir},
	}
}

// applyEnv reads the optional .env file into the process environment without
// overriding variables that are already set, then lets the environment
// override credentials from the file.
func applyEnv(cfg *Config, envPath string) error {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load %s: %w", filepath.Base(envPath), err)
		}
	} else if def := mustExpand(defaultEnvPath); def != envPath {
		if _, err := os.Stat(def); err == nil {
			if err := godotenv.Load(def); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv(envClientID)); v != "" {
		cfg.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv(envClientSecret)); v != "" {
		cfg.ClientSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(envRedisURL)); v != "" {
		cfg.TokenStore.RedisURL = v
	}
	return nil
}

func readOptional(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return bytes, nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

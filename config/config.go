// Package config reads service settings from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"prism-board/domain"
	"prism-board/storage"
)

const (
	DriverTables = "tables"
	DriverMemory = "memory"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Debug     bool
	LogFormat string
	Addr      string

	StoreDriver   string
	StorageConn   string
	Tables        storage.TableNames
	ChangeQueue   string
	RedisConn     string
	RedisPrefix   string
	SnapshotTTL   time.Duration
	DeduperTTL    time.Duration
	SubBuffer     int
	GeminiAPIKey  string
	GeminiModel   string
	Auth0Domain   string
	Auth0Audience string
	LocalAuthMode string
	LocalSecret   string
	JWKSCacheTTL  time.Duration
}

// Load reads the configuration and checks it is usable.
func Load() (Config, error) {
	var errs []error
	c := Config{
		Debug:       envBool("DEBUG", false),
		LogFormat:   strings.ToLower(envString("LOG_FORMAT", "text")),
		Addr:        ":8080",
		StoreDriver: strings.ToLower(envString("STORE_DRIVER", DriverTables)),
		StorageConn: os.Getenv("STORAGE_CONNECTION_STRING"),
		Tables: storage.TableNames{
			domain.Tasks:    envString("TASKS_TABLE", "Tasks"),
			domain.Projects: envString("PROJECTS_TABLE", "Projects"),
			domain.Team:     envString("TEAM_TABLE", "Team"),
		},
		ChangeQueue:   os.Getenv("CHANGE_QUEUE"),
		RedisConn:     os.Getenv("REDIS_CONNECTION_STRING"),
		RedisPrefix:   envString("REDIS_CHANNEL_PREFIX", "prism-board"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		Auth0Domain:   os.Getenv("AUTH0_DOMAIN"),
		Auth0Audience: os.Getenv("AUTH0_AUDIENCE"),
		LocalAuthMode: strings.ToLower(os.Getenv("LOCAL_AUTH_MODE")),
		LocalSecret:   os.Getenv("LOCAL_AUTH_SHARED_SECRET"),
	}
	if v, ok := os.LookupEnv("LISTEN_ADDR"); ok && v != "" {
		c.Addr = v
	} else if v, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok && v != "" {
		c.Addr = ":" + v
	}

	var err error
	if c.SnapshotTTL, err = envDur("SNAPSHOT_CACHE_TTL", time.Minute); err != nil {
		errs = append(errs, err)
	}
	if c.DeduperTTL, err = envDur("DEDUPER_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if c.JWKSCacheTTL, err = envDur("JWKS_CACHE_TTL", 15*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if c.SubBuffer, err = envInt("SUBSCRIPTION_BUFFER", 4); err != nil {
		errs = append(errs, err)
	}

	switch c.StoreDriver {
	case DriverTables:
		if c.StorageConn == "" {
			errs = append(errs, errors.New("missing STORAGE_CONNECTION_STRING"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.LocalAuthMode {
	case "":
		if c.Auth0Domain == "" || c.Auth0Audience == "" {
			errs = append(errs, errors.New("missing Auth0 config"))
		}
	case "hs256":
		if c.LocalSecret == "" {
			errs = append(errs, errors.New("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LOCAL_AUTH_MODE %q", c.LocalAuthMode))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat))
	}
	return c, errors.Join(errs...)
}

// RedisOptions parses REDIS_CONNECTION_STRING, which is either a redis URL
// or an Azure style "host:port,password=...,ssl=True" string.
func (c Config) RedisOptions() (*redis.Options, error) {
	if c.RedisConn == "" {
		return nil, errors.New("missing REDIS_CONNECTION_STRING")
	}
	if opts, err := redis.ParseURL(c.RedisConn); err == nil {
		return opts, nil
	}
	parts := strings.Split(c.RedisConn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	if opts.Addr == "" {
		return nil, errors.New("invalid REDIS_CONNECTION_STRING")
	}
	return opts, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func envDur(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

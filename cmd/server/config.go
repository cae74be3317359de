package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/porthealth/porthealth/internal/db"
	"github.com/porthealth/porthealth/internal/krypto"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	// cookieKeys sign the device cookie. The first key signs new cookies,
	// the others are only used to verify, so keys can be rotated.
	cookieKeys   []krypto.Key
	secureCookie bool
	tokenKey     krypto.Key
	tokenExpiry  time.Duration
	// flowIdleTimeout is how long an unfinished onboarding is kept in memory.
	flowIdleTimeout time.Duration
}

type dbConfig struct {
	driver  db.Driver
	file    string
	migrate bool
}

// config is the configuration for the server command.
type config struct {
	http     httpConfig
	db       dbConfig
	logLevel slog.Level
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
			secureCookie:    true,
			tokenExpiry:     time.Hour * 8,
			flowIdleTimeout: time.Minute * 30,
		},
		db: dbConfig{
			driver:  db.DriverCGO,
			file:    "porthealth.db",
			migrate: true,
		},
		logLevel: slog.LevelInfo,
	}
}

// requiredEnv are the environment variables without a default value.
var requiredEnv = []string{
	"HTTP_COOKIE_KEYS",
	"HTTP_TOKEN_KEY",
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"HTTP_COOKIE_KEYS": func(v string, c *config) error {
		keys, err := krypto.ParseKeys(v)
		if err != nil {
			return err
		}
		c.http.cookieKeys = keys
		return nil
	},
	"HTTP_SECURE_COOKIE": func(v string, c *config) error {
		return confBool(v, &c.http.secureCookie)
	},
	"HTTP_TOKEN_KEY": func(v string, c *config) error {
		key, err := krypto.ParseKey(v)
		if err != nil {
			return err
		}
		c.http.tokenKey = key
		return nil
	},
	"HTTP_TOKEN_EXPIRY": func(v string, c *config) error {
		return confDuration(v, &c.http.tokenExpiry, time.Minute, math.MaxInt64)
	},
	"HTTP_FLOW_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.flowIdleTimeout, time.Minute, math.MaxInt64)
	},
	"DB_DRIVER": func(v string, c *config) error {
		driver, err := db.ParseDriver(v)
		if err != nil {
			return err
		}
		c.db.driver = driver
		return nil
	},
	"DB_FILENAME": func(v string, c *config) error {
		if v == "" {
			return errors.New("empty filename")
		}
		c.db.file = v
		return nil
	},
	"DB_MIGRATE": func(v string, c *config) error {
		return confBool(v, &c.db.migrate)
	},
	"LOG_LEVEL": func(v string, c *config) error {
		return c.logLevel.UnmarshalText([]byte(v))
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
//
// All invalid and missing environment variables are reported at once.
func configFromEnv() (config, error) {
	c := defaultConfig()

	var errs []error
	for _, key := range requiredEnv {
		if _, ok := os.LookupEnv(key); !ok {
			errs = append(errs, fmt.Errorf("missing env variable %s", key))
		}
	}

	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	return c, errors.Join(errs...)
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func confBool(v string, tgt *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*tgt = b

	return nil
}

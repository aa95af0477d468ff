package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/db"
	"github.com/willemschots/gatekeeper/internal/krypto"
	"github.com/willemschots/gatekeeper/internal/redact"
	"github.com/willemschots/gatekeeper/internal/web"
)

// driverMemory keeps all users in memory, they are lost on restart.
const driverMemory db.Driver = "memory"

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	excludedPaths   []string
	server          web.ServerConfig
}

// dbConfig is the configuration for the user store.
type dbConfig struct {
	driver  db.Driver
	dsn     krypto.Secret
	migrate bool
}

type authConfig struct {
	hasher      auth.HasherConfig
	tokenFormat auth.TokenFormat
}

type logConfig struct {
	format    string
	piiFields []string
}

// config is the configuration for the server command.
type config struct {
	http httpConfig
	db   dbConfig
	auth authConfig
	log  logConfig
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
			excludedPaths:   []string{"/", "/users/", "/sessions/", "/reset_password/", "/metrics/"},
			server: web.ServerConfig{
				SecureCookie: true,
			},
		},
		db: dbConfig{
			driver:  db.DriverSQLite3,
			migrate: true,
		},
		auth: authConfig{
			hasher: auth.HasherConfig{
				Algorithm:  auth.HashArgon2id,
				BcryptCost: krypto.BcryptDefaultCost,
			},
			tokenFormat: auth.TokenFormatHex,
		},
		log: logConfig{
			format:    "text",
			piiFields: redact.PIIFields,
		},
	}
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
	"HTTP_SECURE_COOKIE": func(v string, c *config) error {
		return confBool(v, &c.http.server.SecureCookie)
	},
	"HTTP_EXCLUDED_PATHS": func(v string, c *config) error {
		c.http.excludedPaths = confList(v)
		return nil
	},
	"DB_DRIVER": func(v string, c *config) error {
		if db.Driver(v) == driverMemory {
			c.db.driver = driverMemory
			return nil
		}

		driver, err := db.ParseDriver(v)
		if err != nil {
			return err
		}

		c.db.driver = driver
		return nil
	},
	"DB_DSN": func(v string, c *config) error {
		if v == "" {
			return errors.New("empty dsn")
		}

		c.db.dsn = krypto.NewSecret(v)
		return nil
	},
	"DB_MIGRATE": func(v string, c *config) error {
		return confBool(v, &c.db.migrate)
	},
	"AUTH_HASH_ALGORITHM": func(v string, c *config) error {
		alg, err := auth.ParseHashAlgorithm(v)
		if err != nil {
			return err
		}

		c.auth.hasher.Algorithm = alg
		return nil
	},
	"AUTH_BCRYPT_COST": func(v string, c *config) error {
		return confInt(v, &c.auth.hasher.BcryptCost, krypto.BcryptMinCost, krypto.BcryptMaxCost)
	},
	"AUTH_TOKEN_FORMAT": func(v string, c *config) error {
		format := auth.TokenFormat(v)
		switch format {
		case auth.TokenFormatHex, auth.TokenFormatUUID:
			c.auth.tokenFormat = format
			return nil
		default:
			return fmt.Errorf("unknown token format %q", v)
		}
	},
	"LOG_FORMAT": func(v string, c *config) error {
		switch v {
		case "text", "json":
			c.log.format = v
			return nil
		default:
			return fmt.Errorf("unknown log format %q", v)
		}
	},
	"LOG_PII_FIELDS": func(v string, c *config) error {
		c.log.piiFields = confList(v)
		return nil
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
func configFromEnv() (config, error) {
	c := defaultConfig()

	var errs []error
	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	if c.db.driver != driverMemory && c.db.dsn.IsEmpty() {
		errs = append(errs, fmt.Errorf("env variable DB_DSN is required for driver %s", c.db.driver))
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

// confInt attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confInt(v string, tgt *int, min, max int) error {
	i, err := strconv.Atoi(v)
	if err != nil {
		return err
	}

	if i < min || i > max {
		return fmt.Errorf("%d not in range [%d, %d] (inclusive)", i, min, max)
	}

	*tgt = i

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

// confList splits a comma separated list, empty entries are dropped.
func confList(v string) []string {
	list := []string{}
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}

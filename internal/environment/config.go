// Package environment loads the executor configuration from a TOML file,
// an optional .env file and EXECUTOR_* environment variables, in that order
// of increasing precedence.
package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/executor/internal/xdg"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	MySQL     MySQLConfig     `toml:"mysql"`
	SQLite    SQLiteConfig    `toml:"sqlite"`
	FileStore FileStoreConfig `toml:"filestore"`
	Database  DatabaseConfig  `toml:"database"`
	SQS       SQSConfig       `toml:"sqs"`
	NATS      NATSConfig      `toml:"nats"`
}

type LogConfig struct {
	Level string `toml:"level"`
	Color bool   `toml:"color"`
}

type ServerConfig struct {
	Addr        string `toml:"addr"`
	Concurrency int64  `toml:"concurrency"`
	MaxBodyMiB  int64  `toml:"max_body_mib"`
}

// MySQLConfig enables the MySQL strategies when SysDSN is set.
type MySQLConfig struct {
	SysDSN             string `toml:"sys_dsn"`
	RestrictedUser     string `toml:"restricted_user"`
	RestrictedPassword string `toml:"restricted_password"`
}

type SQLiteConfig struct {
	Enabled bool   `toml:"enabled"`
	WorkDir string `toml:"work_dir"`
}

type FileStoreConfig struct {
	FilesDir    string `toml:"files_dir"`
	DownloadDir string `toml:"download_dir"`
}

// DatabaseConfig points at the SQLite file with checkers and test runs.
// Test runs are only persisted when PersistTestRuns is set.
type DatabaseConfig struct {
	Path            string `toml:"path"`
	PersistTestRuns bool   `toml:"persist_test_runs"`
}

type SQSConfig struct {
	Region          string `toml:"region"`
	RequestQueueUrl string `toml:"request_queue_url"`
}

type NATSConfig struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
	Queue   string `toml:"queue"`
}

func Default() *Config {
	dirs := xdg.New()
	return &Config{
		Log:       LogConfig{Level: "info", Color: true},
		Server:    ServerConfig{Addr: ":8080", Concurrency: 4, MaxBodyMiB: 64},
		SQLite:    SQLiteConfig{Enabled: true, WorkDir: dirs.ScratchDir()},
		FileStore: FileStoreConfig{FilesDir: dirs.FilesDir(), DownloadDir: dirs.DownloadDir()},
		Database:  DatabaseConfig{Path: dirs.DatabaseFile()},
		SQS:       SQSConfig{Region: "eu-central-1"},
		NATS:      NATSConfig{URL: "nats://127.0.0.1:4222", Subject: "executor.submissions", Queue: "executor"},
	}
}

// Load builds the configuration. An empty path selects the XDG config file;
// a missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = xdg.New().ConfigFile()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"EXECUTOR_LOG_LEVEL":                 &c.Log.Level,
		"EXECUTOR_ADDR":                      &c.Server.Addr,
		"EXECUTOR_MYSQL_SYS_DSN":             &c.MySQL.SysDSN,
		"EXECUTOR_MYSQL_RESTRICTED_USER":     &c.MySQL.RestrictedUser,
		"EXECUTOR_MYSQL_RESTRICTED_PASSWORD": &c.MySQL.RestrictedPassword,
		"EXECUTOR_SQLITE_WORK_DIR":           &c.SQLite.WorkDir,
		"EXECUTOR_DATABASE_PATH":             &c.Database.Path,
		"EXECUTOR_SQS_REGION":                &c.SQS.Region,
		"EXECUTOR_SQS_REQUEST_QUEUE_URL":     &c.SQS.RequestQueueUrl,
		"EXECUTOR_NATS_URL":                  &c.NATS.URL,
		"EXECUTOR_NATS_SUBJECT":              &c.NATS.Subject,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"EXECUTOR_LOG_COLOR":         &c.Log.Color,
		"EXECUTOR_SQLITE_ENABLED":    &c.SQLite.Enabled,
		"EXECUTOR_PERSIST_TEST_RUNS": &c.Database.PersistTestRuns,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup("EXECUTOR_CONCURRENCY"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid EXECUTOR_CONCURRENCY: %w", err)
		}
		c.Server.Concurrency = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Concurrency < 1 {
		return errors.New("server concurrency must be at least 1")
	}
	if c.MySQL.SysDSN != "" {
		if strings.TrimSpace(c.MySQL.RestrictedUser) == "" || strings.TrimSpace(c.MySQL.RestrictedPassword) == "" {
			return errors.New("mysql restricted user and password are required with a sys DSN")
		}
	}
	if c.SQLite.Enabled && c.SQLite.WorkDir == "" {
		return errors.New("sqlite work directory is required")
	}
	return nil
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/relational/bunrepo"
	"github.com/suparena/entityrepo/relational/pgxrepo"
)

// Config is the complete entityrepo configuration.
type Config struct {
	Log        Log        `koanf:"log"`
	Relational Relational `koanf:"relational"`
	TableStore TableStore `koanf:"tablestore"`
}

// Log configures the process logger.
type Log struct {
	Level     string `koanf:"level" validate:"oneof=debug info warn error disabled"`
	JSON      bool   `koanf:"json"`
	AddSource bool   `koanf:"add_source"`
}

// Relational configures the SQL backends. DSN wins over the individual
// connection fields when set.
type Relational struct {
	Driver   string `koanf:"driver" validate:"omitempty,oneof=mysql postgres sqlite"`
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=0,lte=65535"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	MaxOpenConns       int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns       int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime    time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout     time.Duration `koanf:"connect_timeout"`
	QueryLog           bool          `koanf:"query_log"`
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold"`
}

// TableStore configures the key-value table backend.
type TableStore struct {
	ConnectionString string `koanf:"connection_string"`
	Table            string `koanf:"table"`
}

// Default returns the configuration used before any source is applied.
func Default() *Config {
	return &Config{
		Log: Log{Level: "info"},
		Relational: Relational{
			Host:               "localhost",
			SSLMode:            "disable",
			MaxOpenConns:       25,
			MaxIdleConns:       5,
			ConnMaxLifetime:    time.Hour,
			ConnectTimeout:     10 * time.Second,
			SlowQueryThreshold: 500 * time.Millisecond,
		},
		TableStore: TableStore{Table: "entities"},
	}
}

// Logger builds the logger described by l.
func (l Log) Logger() logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(l.Level),
		JSON:       l.JSON,
		AddSource:  l.AddSource,
		TimeFormat: "15:04:05",
	})
}

// ConnectionString returns DSN, or builds one for Driver from the individual
// fields. MySQL DSNs always report matched rather than changed rows, so an
// update that leaves a row unchanged still counts as affecting it.
func (r Relational) ConnectionString() (string, error) {
	switch r.Driver {
	case "mysql":
		return r.mysqlDSN()
	case "postgres":
		if r.DSN != "" {
			return r.DSN, nil
		}
		return r.postgresDSN(), nil
	case "sqlite":
		if r.DSN != "" {
			return r.DSN, nil
		}
		if r.DBName == "" {
			return "", fmt.Errorf("sqlite requires dsn or dbname")
		}
		return fmt.Sprintf("file:%s.db?cache=shared", r.DBName), nil
	case "":
		return "", fmt.Errorf("relational driver is not configured")
	default:
		return "", fmt.Errorf("unsupported relational driver: %s", r.Driver)
	}
}

func (r Relational) mysqlDSN() (string, error) {
	var cfg *mysql.Config
	if r.DSN != "" {
		parsed, err := mysql.ParseDSN(r.DSN)
		if err != nil {
			return "", fmt.Errorf("parsing mysql dsn: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = r.User
		cfg.Passwd = r.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(r.Host, strconv.Itoa(r.portOr(3306)))
		cfg.DBName = r.DBName
		cfg.ParseTime = true
		cfg.Timeout = r.ConnectTimeout
		cfg.Params = map[string]string{"charset": "utf8mb4"}
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func (r Relational) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(r.User, r.Password),
		Host:   net.JoinHostPort(r.Host, strconv.Itoa(r.portOr(5432))),
		Path:   "/" + r.DBName,
	}
	q := url.Values{}
	if r.SSLMode != "" {
		q.Set("sslmode", r.SSLMode)
	}
	if r.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(r.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r Relational) portOr(def int) int {
	if r.Port > 0 {
		return r.Port
	}
	return def
}

// Bun returns the settings for bunrepo.Open.
func (r Relational) Bun(log logger.Logger) (bunrepo.Config, error) {
	dsn, err := r.ConnectionString()
	if err != nil {
		return bunrepo.Config{}, err
	}
	return bunrepo.Config{
		Driver:             r.Driver,
		DSN:                dsn,
		MaxOpenConns:       r.MaxOpenConns,
		MaxIdleConns:       r.MaxIdleConns,
		ConnMaxLifetime:    r.ConnMaxLifetime,
		QueryLog:           r.QueryLog,
		SlowQueryThreshold: r.SlowQueryThreshold,
		Logger:             log,
	}, nil
}

// Pgx returns the settings for pgxrepo.Connect. Only postgres is supported.
func (r Relational) Pgx() (pgxrepo.Config, error) {
	if r.Driver != "postgres" {
		return pgxrepo.Config{}, fmt.Errorf("pgx requires the postgres driver, got %q", r.Driver)
	}
	dsn, err := r.ConnectionString()
	if err != nil {
		return pgxrepo.Config{}, err
	}
	return pgxrepo.Config{
		ConnString:     dsn,
		MaxConns:       int32(r.MaxOpenConns),
		MinConns:       int32(r.MaxIdleConns),
		ConnectTimeout: r.ConnectTimeout,
	}, nil
}

package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	DSN    string
}

// LoadConfig reads DB_DRIVER (default mysql) and DATABASE_DSN. MYSQL_DSN is
// still honoured for mysql deployments.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Driver: strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER"))),
		DSN:    os.Getenv("DATABASE_DSN"),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverMySQL
	}
	if cfg.DSN == "" && cfg.Driver == DriverMySQL {
		cfg.DSN = os.Getenv("MYSQL_DSN")
	}
	switch cfg.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("DATABASE_DSN is empty")
	}
	return cfg, nil
}

func (c *Config) Print() {
	fmt.Println("Database driver:", c.Driver)
	fmt.Println("Database DSN:", redactDSN(c.DSN))
}

// redactDSN hides the password part of user:pass@host style DSNs.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	head := dsn[:at]
	colon := strings.LastIndex(head, ":")
	if colon < 0 {
		return dsn
	}
	return head[:colon+1] + "****" + dsn[at:]
}

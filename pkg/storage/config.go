package storage

import (
	"context"
	"fmt"

	"github.com/matzehuels/reposcout/pkg/errors"
)

// Drivers.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

// Config selects and configures a Store.
type Config struct {
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=none postgres mysql mongo"`

	// DSN is a driver-specific connection string: a postgres:// URL or
	// key=value string, a MySQL DSN, or a mongodb:// URI.
	DSN string `mapstructure:"dsn"`

	// Database is the MongoDB database name.
	Database string `mapstructure:"database"`

	MaxOpenConns int `mapstructure:"max_open_conns" validate:"gte=0"`
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return NopStore{}, nil
	}
	if cfg.DSN == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "storage driver %q needs a dsn", cfg.Driver)
	}
	switch cfg.Driver {
	case DriverPostgres, DriverMySQL:
		s, err := OpenSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case DriverMongo:
		return OpenMongo(ctx, cfg)
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown storage driver %q", cfg.Driver)
}

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}

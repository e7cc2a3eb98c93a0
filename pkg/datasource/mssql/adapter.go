// Package mssql implements the datasource.Adapter capability set against
// Microsoft SQL Server using database/sql + go-mssqldb, the second
// concrete driver alongside postgres so both C1/C2/C10 exercise their
// capability interfaces against more than one backend.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

// Adapter provides SQL Server connectivity for schema discovery, table
// streaming, and read-only query execution.
type Adapter struct {
	db *sql.DB
}

func buildConnectionString(p datasource.ConnParams) string {
	host := config.ResolveHostForDocker(p.Host)
	q := url.Values{}
	q.Set("database", p.Database)
	q.Set("encrypt", "true")
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", host, p.Port),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewAdapter creates a SQL Server adapter with its own connection pool.
func NewAdapter(ctx context.Context, p datasource.ConnParams) (datasource.Adapter, error) {
	db, err := sql.Open("sqlserver", buildConnectionString(p))
	if err != nil {
		return nil, fmt.Errorf("open sqlserver: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}
	return &Adapter{db: db}, nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ datasource.Adapter = (*Adapter)(nil)

// Package postgres implements the datasource.Adapter capability set against
// PostgreSQL 13+ using pgx, grounded in the reference adapter's connection
// and catalog-introspection SQL.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

// Adapter provides PostgreSQL connectivity for schema discovery, table
// streaming, and read-only query execution.
type Adapter struct {
	pool   *pgxpool.Pool
	schema string // target schema to introspect, default "public"
}

// buildConnectionString builds a PostgreSQL URL with proper escaping so
// special characters in passwords (@, /, #, ?) do not break URL parsing.
// Resolves "localhost" to "host.docker.internal" when running in Docker.
func buildConnectionString(p datasource.ConnParams) string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	host := config.ResolveHostForDocker(p.Host)
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(p.User),
		url.QueryEscape(p.Password),
		host,
		p.Port,
		url.QueryEscape(p.Database),
		sslMode,
	)
}

// NewAdapter creates a PostgreSQL adapter with its own pool.
func NewAdapter(ctx context.Context, p datasource.ConnParams) (datasource.Adapter, error) {
	pool, err := pgxpool.New(ctx, buildConnectionString(p))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Adapter{pool: pool, schema: "public"}, nil
}

// TestConnection verifies the database is reachable with a ping and a
// trivial query.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

var _ datasource.Adapter = (*Adapter)(nil)

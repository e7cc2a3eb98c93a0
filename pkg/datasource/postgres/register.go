//go:build postgres || all_adapters

package postgres

import (
	"context"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

func init() {
	datasource.Register(
		datasource.AdapterInfo{Driver: "postgres", DisplayName: "PostgreSQL"},
		func(ctx context.Context, p datasource.ConnParams) (datasource.Adapter, error) {
			return NewAdapter(ctx, p)
		},
	)
}

//go:build mssql || all_adapters

package mssql

import (
	"context"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

func init() {
	datasource.Register(
		datasource.AdapterInfo{Driver: "mssql", DisplayName: "Microsoft SQL Server"},
		func(ctx context.Context, p datasource.ConnParams) (datasource.Adapter, error) {
			return NewAdapter(ctx, p)
		},
	)
}

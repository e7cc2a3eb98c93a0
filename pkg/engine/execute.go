package engine

import (
	"context"

	"github.com/ekaya-inc/schema-intel/pkg/apperrors"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/engine/sqlguard"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

const maxDriverErrorLen = 200

// execResult is the outcome of validating and running one raw-SQL statement
// against a client's database (C10).
type execResult struct {
	Dataframe *model.Dataframe
	// Blocked holds sqlguard.SafetyAlert when the statement was rejected
	// before ever reaching the database.
	Blocked string
	// DriverError holds a truncated (<=200 char) driver error string when
	// execution itself failed.
	DriverError string
	// Kind is the machine-readable apperrors.Kind for Blocked/DriverError,
	// spec §7's sql_unsafe/sql_exec_failed tags. Zero value when neither is
	// set.
	Kind apperrors.Kind
}

// executeSQL runs the validator/executor pipeline (C10) for one raw SQL
// statement straight from an LLM: post-process, reject unsafe statements,
// execute against a read-only connection, and truncate any driver error.
func executeSQL(ctx context.Context, executor datasource.QueryExecutor, rawSQL string) execResult {
	cleaned, err := sqlguard.Sanitize(rawSQL)
	if err != nil {
		return execResult{Blocked: sqlguard.SafetyAlert, Kind: apperrors.KindSQLUnsafe}
	}
	if err := sqlguard.Validate(cleaned); err != nil {
		return execResult{Blocked: sqlguard.SafetyAlert, Kind: apperrors.KindSQLUnsafe}
	}

	df, err := executor.Execute(ctx, cleaned)
	if err != nil {
		return execResult{DriverError: truncateError(err), Kind: apperrors.KindSQLExecFailed}
	}
	return execResult{Dataframe: df}
}

func truncateError(err error) string {
	msg := err.Error()
	if kind := apperrors.KindOf(err); kind != "" {
		msg = string(kind) + ": " + msg
	}
	if len(msg) > maxDriverErrorLen {
		msg = msg[:maxDriverErrorLen]
	}
	return msg
}

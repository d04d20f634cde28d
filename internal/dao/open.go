package dao

import (
	"context"
	"strings"
)

// Open selects a DAO backend from dsn: a "postgres://" or "postgresql://"
// URL connects PostgresDAO; anything else is treated as a filesystem
// base directory for FSDAO. This lets cmd/ and tests share one
// connection-string flag across both backends.
func Open(ctx context.Context, dsn string) (DAO, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresDAO(ctx, dsn)
	}
	return NewFSDAO(dsn)
}

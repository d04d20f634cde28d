package dao

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixeldup/dids/internal/diderr"
	"github.com/pixeldup/dids/internal/index"
	"github.com/pixeldup/dids/internal/miniature"
)

// Schema mirrors original_source/src/ppm_dao.c and
// similar_but_different_dao.c's Postgres tables, renamed from the
// reference's dids_ppm/dids_similar_but_different to dids_images/
// dids_similar_but_different:
//
//	CREATE TABLE dids_images (
//	    external_ref text PRIMARY KEY,
//	    width        integer NOT NULL,
//	    height       integer NOT NULL,
//	    hexdata      text NOT NULL,
//	    created      timestamptz NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE dids_similar_but_different (
//	    external_ref       text NOT NULL REFERENCES dids_images(external_ref) ON DELETE CASCADE,
//	    external_ref_other text NOT NULL,
//	    PRIMARY KEY (external_ref, external_ref_other)
//	);

// PostgresDAO implements DAO against a Postgres database via pgx/v5,
// wired as the relational store spec.md §1 names as an external
// collaborator and grounded in the original's libpq-based
// ppm_sql.c/ppm_dao.c.
type PostgresDAO struct {
	pool *pgxpool.Pool
}

// NewPostgresDAO connects to dsn and returns a ready DAO.
func NewPostgresDAO(ctx context.Context, dsn string) (*PostgresDAO, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: failed to connect to postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: postgres ping failed")
	}
	return &PostgresDAO{pool: pool}, nil
}

func (p *PostgresDAO) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT external_ref, width, height, hexdata FROM dids_images ORDER BY external_ref`)
	if err != nil {
		return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: load_all query failed")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var ref string
		var width, height int
		var hexdata string
		if err := rows.Scan(&ref, &width, &height, &hexdata); err != nil {
			return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: load_all scan failed")
		}
		m, err := DecodeHex(width, height, hexdata)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{Ref: ref, Miniature: m})
	}
	if err := rows.Err(); err != nil {
		return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: load_all row iteration failed")
	}
	return out, nil
}

func (p *PostgresDAO) Insert(ctx context.Context, ref string, m *miniature.Miniature) error {
	hexdata := EncodeHex(m)
	_, err := p.pool.Exec(ctx,
		`INSERT INTO dids_images (external_ref, width, height, hexdata) VALUES ($1, $2, $3, $4)`,
		ref, m.Width, m.Height, hexdata)
	if err != nil {
		return diderr.Wrap(diderr.PersistenceFailure, err, "dao: insert failed for ref %s", ref)
	}
	return nil
}

func (p *PostgresDAO) Delete(ctx context.Context, ref string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM dids_images WHERE external_ref = $1`, ref)
	if err != nil {
		return diderr.Wrap(diderr.PersistenceFailure, err, "dao: delete failed for ref %s", ref)
	}
	if tag.RowsAffected() == 0 {
		return diderr.New(diderr.PersistenceFailure, "dao: delete found no record for ref %s", ref)
	}
	return nil
}

func (p *PostgresDAO) ListSBDPairs(ctx context.Context) ([]index.Pair, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT external_ref, external_ref_other FROM dids_similar_but_different ORDER BY external_ref`)
	if err != nil {
		return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: list_sbd_pairs query failed")
	}
	defer rows.Close()

	var out []index.Pair
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: list_sbd_pairs scan failed")
		}
		out = append(out, index.Pair{A: a, B: b})
	}
	if err := rows.Err(); err != nil {
		return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: list_sbd_pairs row iteration failed")
	}
	return out, nil
}

func (p *PostgresDAO) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

var _ DAO = (*PostgresDAO)(nil)

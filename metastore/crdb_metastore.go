package metastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danthegoodman1/vcf2parquet/part"
	"github.com/danthegoodman1/vcf2parquet/utils"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

const uniqueViolation = "23505"

type (
	// CRDBMetaStore keeps parts in the parts table created by the migrations package.
	CRDBMetaStore struct {
		pool       *pgxpool.Pool
		maxRuntime time.Duration
	}
)

func NewCRDBMetaStore(pool *pgxpool.Pool, maxRuntime time.Duration) *CRDBMetaStore {
	if maxRuntime <= 0 {
		maxRuntime = time.Second * 60
	}
	return &CRDBMetaStore{
		pool:       pool,
		maxRuntime: maxRuntime,
	}
}

func (cms *CRDBMetaStore) CreatePart(ctx context.Context, p part.Part) error {
	logger := zerolog.Ctx(ctx)
	err := utils.ReliableExecInTx(ctx, cms.pool, cms.maxRuntime, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO parts (id, dataset, name, row_count, row_groups, bytes, columns, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, p.ID, p.Dataset, p.Name, p.RowCount, p.RowGroups, p.Bytes, p.Columns, p.CreatedAt)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return utils.PermError(fmt.Sprintf("%s: %s/%s", ErrPartExists, p.Dataset, p.Name))
		}
		if err != nil {
			return fmt.Errorf("error inserting part: %w", err)
		}
		return nil
	})
	if utils.IsPermanent(err) {
		return fmt.Errorf("%w: %s/%s", ErrPartExists, p.Dataset, p.Name)
	}
	if err != nil {
		return fmt.Errorf("error in ReliableExecInTx: %w", err)
	}
	logger.Debug().Str("part", p.ID).Str("dataset", p.Dataset).Msg("created part")
	return nil
}

func (cms *CRDBMetaStore) ListParts(ctx context.Context, dataset string) ([]part.Part, error) {
	parts := make([]part.Part, 0)
	err := utils.ReliableExec(ctx, cms.pool, cms.maxRuntime, func(ctx context.Context, conn *pgxpool.Conn) error {
		parts = parts[:0]
		rows, err := conn.Query(ctx, `
			SELECT id, dataset, name, row_count, row_groups, bytes, columns, created_at
			FROM parts
			WHERE dataset = $1
			ORDER BY created_at, id
		`, dataset)
		if err != nil {
			return fmt.Errorf("error in Query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var p part.Part
			if err := rows.Scan(&p.ID, &p.Dataset, &p.Name, &p.RowCount, &p.RowGroups, &p.Bytes, &p.Columns, &p.CreatedAt); err != nil {
				return fmt.Errorf("error in Scan: %w", err)
			}
			parts = append(parts, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("error in ReliableExec: %w", err)
	}
	return parts, nil
}

func (cms *CRDBMetaStore) Shutdown(_ context.Context) error {
	cms.pool.Close()
	return nil
}

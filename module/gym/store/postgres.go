package store

import (
	"context"
	"errors"

	"GymChat/module/gym/model"
	"GymChat/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// matches 是同名 gym 的总数，大于 1 时不解析
const lookupGymSQL = `SELECT id::text, owner_id::text, name, count(*) OVER () AS matches FROM gyms WHERE name = $1 ORDER BY id LIMIT 1`

// rowQuerier pgxpool.Pool / pgx.Conn / pgx.Tx 都满足
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDirectory gym 目录在关系库里时使用
type PostgresDirectory struct {
	db rowQuerier
}

func NewPostgresDirectory(db rowQuerier) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// OpenPostgres 建连接池并 ping 一次
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.WrapMsg(err, "pgxpool.New")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.WrapMsg(err, "postgres ping")
	}
	return pool, nil
}

func (d *PostgresDirectory) LookupByName(ctx context.Context, name string) (*model.GymRef, error) {
	var (
		ref     model.GymRef
		matches int64
	)
	err := d.db.QueryRow(ctx, lookupGymSQL, name).Scan(&ref.ID, &ref.OwnerID, &ref.Name, &matches)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "lookup gym", "name", name)
	}
	if matches > 1 {
		ambiguous(name, int(matches))
		return nil, nil
	}
	return &ref, nil
}

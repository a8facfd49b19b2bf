package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS rag_documents (
  id          TEXT PRIMARY KEY,
  name        TEXT NOT NULL,
  type        TEXT NOT NULL,
  size        BIGINT NOT NULL DEFAULT 0,
  path        TEXT NOT NULL,
  status      TEXT NOT NULL,
  chunks      INTEGER NOT NULL DEFAULT 0,
  error       TEXT NOT NULL DEFAULT '',
  metadata    JSONB,
  created_at  BIGINT NOT NULL,
  updated_at  BIGINT NOT NULL
)`

const selectColumns = `id, name, type, size, path, status, chunks, error, metadata, created_at, updated_at`

// PostgresStore 基于 PostgreSQL 的元数据存储，使用 rag_documents 表
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 连接数据库并确保表存在
func NewPostgresStore(ctx context.Context, dsn string, poolSize int) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn 不能为空")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("解析 postgres dsn 失败: %w", err)
	}
	if poolSize > 0 {
		poolCfg.MaxConns = int32(poolSize)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("连接 postgres 失败: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("初始化 rag_documents 表失败: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Upsert 实现 Store
func (s *PostgresStore) Upsert(ctx context.Context, doc *Document) error {
	if doc == nil || doc.ID == "" {
		return errors.New("document id is required")
	}
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO rag_documents (id, name, type, size, path, status, chunks, error, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name, type = EXCLUDED.type, size = EXCLUDED.size, path = EXCLUDED.path,
  status = EXCLUDED.status, chunks = EXCLUDED.chunks, error = EXCLUDED.error,
  metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`,
		doc.ID, doc.Name, doc.Type, doc.Size, doc.Path, doc.Status, doc.Chunks, doc.Error, meta, now,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	return err
}

// Get 实现 Store
func (s *PostgresStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM rag_documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return doc, nil
}

// Delete 实现 Store
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rag_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List 实现 Store
func (s *PostgresStore) List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Document, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + selectColumns + ` FROM rag_documents` + where + ` ORDER BY created_at, id`
	if pagination != nil {
		if pagination.Limit > 0 {
			args = append(args, pagination.Limit)
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		if pagination.Offset > 0 {
			args = append(args, pagination.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count 实现 Store
func (s *PostgresStore) Count(ctx context.Context, filter *Filter) (int64, error) {
	where, args := buildWhere(filter)
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rag_documents`+where, args...).Scan(&n)
	return n, err
}

// Clear 实现 Store
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rag_documents`)
	return err
}

// Close 实现 Store
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// buildWhere 将 Filter 转为参数化 WHERE 子句
func buildWhere(filter *Filter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}
	var conds []string
	var args []interface{}
	if len(filter.Types) > 0 {
		args = append(args, filter.Types)
		conds = append(conds, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if len(filter.Status) > 0 {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR path ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var meta []byte
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Type, &doc.Size, &doc.Path, &doc.Status,
		&doc.Chunks, &doc.Error, &meta, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &doc.Metadata)
	}
	return &doc, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Dialect はSQLKVRepoが発行するSQLの方言を表す。
type Dialect string

const (
	// DialectPostgres は $1 形式のプレースホルダを使う。
	DialectPostgres Dialect = "postgres"
	// DialectSQLite は ? 形式のプレースホルダを使う。
	DialectSQLite Dialect = "sqlite"
)

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// SQLKVRepo はclient_kvテーブルを使用したキーバリューストア。
// PostgreSQLとSQLiteの両方で動作する。
type SQLKVRepo struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewPostgresKVRepo はPostgreSQL用のSQLKVRepoを生成する。
func NewPostgresKVRepo(db *sql.DB) *SQLKVRepo {
	return &SQLKVRepo{db: db, dialect: DialectPostgres, now: time.Now}
}

// NewSQLiteKVRepo はSQLite用のSQLKVRepoを生成する。
func NewSQLiteKVRepo(db *sql.DB) *SQLKVRepo {
	return &SQLKVRepo{db: db, dialect: DialectSQLite, now: time.Now}
}

// Get は指定キーの値を取得する。
func (r *SQLKVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT value FROM client_kv WHERE key = $1`),
		key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %q: %w", key, err)
	}

	return value, true, nil
}

// Set は指定キーに値をUPSERTする。
func (r *SQLKVRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO client_kv (key, value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, r.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Delete は指定キーを同一トランザクションで削除する。
func (r *SQLKVRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := r.rebind(`DELETE FROM client_kv WHERE key = $1`)
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("failed to delete key %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// rebind はPostgreSQL形式のプレースホルダを方言に合わせて書き換える。
func (r *SQLKVRepo) rebind(query string) string {
	if r.dialect == DialectSQLite {
		return placeholderPattern.ReplaceAllString(query, "?")
	}
	return query
}

// timestamp はupdated_atに書き込む値を返す。
// SQLiteのカラムはTEXTのためRFC3339文字列で保存する。
func (r *SQLKVRepo) timestamp() any {
	now := r.now().UTC()
	if r.dialect == DialectSQLite {
		return now.Format(time.RFC3339Nano)
	}
	return now
}

// compile-time interface check
var _ KeyValueStore = (*SQLKVRepo)(nil)

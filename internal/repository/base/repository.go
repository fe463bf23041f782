package base

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation: SQLSTATE нарушения уникальности
const uniqueViolation = "23505"

// ErrConflict: строка не вставилась из-за конфликта, но и найти её не удалось
var ErrConflict = errors.New("insert or fetch: row conflicts but cannot be fetched")

// DBTX: общее подмножество pgxpool.Pool и pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool: DBTX, умеющий открывать транзакции
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository базовый репозиторий с общими методами
type Repository struct {
	db DBTX
}

// NewRepository создаёт новый базовый репозиторий
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// DB возвращает соединение (пул или транзакцию)
func (r *Repository) DB() DBTX {
	return r.db
}

// QueryRow выполняет запрос и возвращает одну строку
func (r *Repository) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return r.db.QueryRow(ctx, query, args...)
}

// Query выполняет запрос и возвращает множество строк
func (r *Repository) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return r.db.Query(ctx, query, args...)
}

// ExecAffected выполняет команду и возвращает количество затронутых строк
func (r *Repository) ExecAffected(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation проверяет нарушение уникального ограничения (пустой constraint означает любое)
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// WithTx выполняет fn в транзакции: коммит при nil, откат при ошибке или панике
func WithTx(ctx context.Context, pool Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Query: SQL с аргументами
type Query struct {
	SQL  string
	Args []any
}

// InsertOrFetch вставляет строку через INSERT ... ON CONFLICT DO NOTHING RETURNING,
// а если её уже кто-то вставил, читает существующую. created = true, если вставили мы.
//
// Внутри транзакции insert обязан содержать ON CONFLICT DO NOTHING: ошибка 23505
// прерывает транзакцию, и fetch после неё не выполнится.
func InsertOrFetch[T any](ctx context.Context, db DBTX, insert, fetch Query, scan func(row pgx.Row, dest *T) error) (*T, bool, error) {
	var created T
	err := scan(db.QueryRow(ctx, insert.SQL, insert.Args...), &created)
	switch {
	case err == nil:
		return &created, true, nil
	case IsNotFound(err), IsUniqueViolation(err, ""):
		// строку уже вставили, читаем её
	default:
		return nil, false, fmt.Errorf("insert: %w", err)
	}

	var existing T
	err = scan(db.QueryRow(ctx, fetch.SQL, fetch.Args...), &existing)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, ErrConflict
		}
		return nil, false, fmt.Errorf("fetch existing: %w", err)
	}

	return &existing, false, nil
}

package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/auth"
	"smartlotto.org/internal/backoffice"
	"smartlotto.org/internal/mutation"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var (
	_ backoffice.Stores = (*Store)(nil)
	_ auth.UserStore    = (*userStore)(nil)
)

// PoolOptions tunes the connection pool. Zero fields keep the defaults.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Store is the PostgreSQL backend. It owns the *sql.DB and must be closed.
type Store struct {
	db *sql.DB
}

func Open(dsn string, opts PoolOptions) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(orInt(opts.MaxOpenConns, 50))
	db.SetMaxIdleConns(orInt(opts.MaxIdleConns, 25))
	db.SetConnMaxLifetime(orDuration(opts.ConnMaxLifetime, 15*time.Minute))
	db.SetConnMaxIdleTime(orDuration(opts.ConnMaxIdleTime, 5*time.Minute))
	return &Store{db: db}, nil
}

// New wraps an existing handle. Tests pass a sqlmock connection.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Enterprises() mutation.Store[backoffice.Enterprise, backoffice.EnterpriseInput, backoffice.EnterprisePatch] {
	return newTable(s.db, enterprises)
}

func (s *Store) Customers() mutation.Store[backoffice.Customer, backoffice.CustomerInput, backoffice.CustomerPatch] {
	return newTable(s.db, customers)
}

func (s *Store) ItemTypes() mutation.Store[backoffice.ItemType, backoffice.ItemTypeInput, backoffice.ItemTypePatch] {
	return newTable(s.db, itemTypes)
}

func (s *Store) Orders() mutation.Store[backoffice.Order, backoffice.OrderInput, backoffice.OrderPatch] {
	return newTable(s.db, orders)
}

func (s *Store) OrderItems() mutation.Store[backoffice.OrderItem, backoffice.OrderItemInput, backoffice.OrderItemPatch] {
	return newTable(s.db, orderItems)
}

func (s *Store) QuickNotes() mutation.Store[backoffice.QuickNote, backoffice.QuickNoteInput, backoffice.QuickNotePatch] {
	return newTable(s.db, quickNotes)
}

func (s *Store) Lotteries() mutation.Store[backoffice.Lottery, backoffice.LotteryInput, backoffice.LotteryPatch] {
	return newTable(s.db, lotteries)
}

func (s *Store) ChangeLogs() audit.Reader { return changeLogs{q: s.db} }

func (s *Store) Users() auth.UserStore { return &userStore{db: s.db} }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// classify maps driver errors onto the shared taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, "not found")
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return &apperr.Error{Kind: apperr.KindConflict, Op: op, Msg: "already exists", Err: err}
		case pgErrForeignKeyViolation:
			return &apperr.Error{Kind: apperr.KindConflict, Op: op, Msg: "referenced row constraint", Err: err}
		}
	}
	return apperr.Persistence(op, err)
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		UserRepository:        NewUserRepository(db),
		LocationRepository:    NewLocationRepository(db),
		CategoryRepository:    NewCategoryRepository(db),
		RewardRepository:      NewRewardRepository(db),
		TransactionRepository: NewTransactionRepository(db),
		RedemptionRepository:  NewRedemptionRepository(db),
		AuditRepository:       NewAuditRepository(db),
		DashboardRepository:   NewDashboardRepository(db),
		TxManager:             NewTxManager(db),
		HealthChecker:         &pinger{db: db},
	}
}

type pinger struct {
	db *sql.DB
}

func (p *pinger) Ping(ctx context.Context) error {
	var one int
	return p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

type txManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) repository.TxManager {
	return &txManager{db: db}
}

func (m *txManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError("transaction", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &ledgerTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateError("transaction", err)
	}
	return nil
}

// translateError maps driver errors onto the application error kinds.
func translateError(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return apperr.Conflict("%s already exists", entity)
		case "23503": // foreign_key_violation
			return apperr.Conflict("%s is referenced by other records", entity)
		case "23514": // check_violation
			return apperr.Conflict("%s violates a constraint", entity)
		case "22003": // numeric_value_out_of_range
			return apperr.Validation("%s value out of range", entity)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperr.Conflict("concurrent update, please retry")
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Internal(entity, err)
}

// filterBuilder accumulates WHERE clauses with positional arguments.
// Each clause has one %d verb for its placeholder number.
type filterBuilder struct {
	clauses []string
	args    []any
}

func (b *filterBuilder) add(clause string, arg any) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(clause, len(b.args)))
}

func (b *filterBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// page returns the LIMIT/OFFSET suffix and the arguments to use with it.
func (b *filterBuilder) page(p domain.Page) (string, []any) {
	args := append(append([]any{}, b.args...), p.Limit(), p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func (b *filterBuilder) count(ctx context.Context, q querier, table string) (int, error) {
	var total int
	query := "SELECT COUNT(*) FROM " + table + b.where()
	logger.DatabaseCall("count", query)
	err := q.QueryRowContext(ctx, query, b.args...).Scan(&total)
	return total, err
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(search)) + "%"
}

func expectOneRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translateError(entity, err)
	}
	if n == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

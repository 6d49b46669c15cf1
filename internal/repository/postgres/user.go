package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

const userColumns = `id, name, email, password_hash, role, location_id, points,
	COALESCE(avatar_url, ''), COALESCE(rw, ''), COALESCE(rt, ''), created_at, updated_at`

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(s scanner) (*domain.User, error) {
	u := &domain.User{}
	var loc sql.NullString
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &loc, &u.Points,
		&u.AvatarURL, &u.RW, &u.RT, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.LocationID = stringPtr(loc)
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	logger.EnterMethod("userRepository.Create", "email", user.Email, "role", user.Role)

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, name, email, password_hash, role, location_id, points, avatar_url, rw, rt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role,
		nullString(user.LocationID), user.Points, user.AvatarURL, user.RW, user.RT, now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("userRepository.Create", err, "email", user.Email)
		return translateError("User", err)
	}

	logger.ExitMethod("userRepository.Create", "userID", user.ID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError("User", err)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		return nil, translateError("User", err)
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	logger.EnterMethod("userRepository.Update", "userID", user.ID)

	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, role = $5, location_id = $6,
		    avatar_url = $7, rw = $8, rt = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role,
		nullString(user.LocationID), user.AvatarURL, user.RW, user.RT,
	).Scan(&user.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("userRepository.Update", err, "userID", user.ID)
		return translateError("User", err)
	}

	logger.ExitMethod("userRepository.Update", "userID", user.ID)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translateError("User", err)
	}
	return expectOneRow(res, "User")
}

func (r *userRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	b := &filterBuilder{}
	if filter.LocationID != nil {
		b.add("location_id = $%d", *filter.LocationID)
	}
	if filter.Role != nil {
		b.add("role = $%d", *filter.Role)
	}
	if filter.Search != "" {
		b.add("(name ILIKE $%[1]d OR email ILIKE $%[1]d)", likePattern(filter.Search))
	}

	total, err := b.count(ctx, r.db, "users")
	if err != nil {
		return nil, 0, translateError("User", err)
	}

	suffix, args := b.page(filter.Page)
	query := `SELECT ` + userColumns + ` FROM users` + b.where() + ` ORDER BY created_at DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("User", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, translateError("User", err)
		}
		users = append(users, *u)
	}
	return users, total, translateError("User", rows.Err())
}

func (r *userRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n)
	return n, translateError("User", err)
}

func (r *userRepository) Leaderboard(ctx context.Context, locationID *string, limit int) ([]domain.LeaderboardEntry, error) {
	b := &filterBuilder{}
	b.add("role = $%d", domain.RoleNasabah)
	if locationID != nil {
		b.add("location_id = $%d", *locationID)
	}
	args := append(b.args, limit)
	query := `SELECT id, name, COALESCE(avatar_url, ''), location_id, points FROM users` + b.where() +
		` ORDER BY points DESC, created_at ASC LIMIT $` + itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("User", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		var loc sql.NullString
		if err := rows.Scan(&e.UserID, &e.Name, &e.AvatarURL, &loc, &e.Points); err != nil {
			return nil, translateError("User", err)
		}
		e.LocationID = stringPtr(loc)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, translateError("User", rows.Err())
}

func (r *userRepository) BalanceDiscrepancies(ctx context.Context) ([]domain.BalanceDiscrepancy, error) {
	logger.EnterMethod("userRepository.BalanceDiscrepancies")

	query := `
		SELECT u.id, u.points, COALESCE(t.earned, 0) - COALESCE(rd.spent, 0) AS expected
		FROM users u
		LEFT JOIN (
			SELECT user_id, SUM(points) AS earned FROM waste_transactions
			WHERE status = 'COMPLETED' GROUP BY user_id
		) t ON t.user_id = u.id
		LEFT JOIN (
			SELECT user_id, SUM(points_spent) AS spent FROM reward_redemptions
			WHERE status = 'APPROVED' GROUP BY user_id
		) rd ON rd.user_id = u.id
		WHERE u.points <> COALESCE(t.earned, 0) - COALESCE(rd.spent, 0)`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.ExitMethodWithError("userRepository.BalanceDiscrepancies", err)
		return nil, translateError("User", err)
	}
	defer rows.Close()

	var out []domain.BalanceDiscrepancy
	for rows.Next() {
		var d domain.BalanceDiscrepancy
		if err := rows.Scan(&d.UserID, &d.Stored, &d.Expected); err != nil {
			return nil, translateError("User", err)
		}
		out = append(out, d)
	}

	logger.ExitMethod("userRepository.BalanceDiscrepancies", "count", len(out))
	return out, translateError("User", rows.Err())
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/premium-store/internal/model"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateContact(ctx context.Context, id uuid.UUID, name, whatsapp string) error
	ListCustomers(ctx context.Context, limit, offset int) ([]model.User, int, error)
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

const userColumns = `id, email, name, whatsapp_number, is_admin, referral_code, loyalty_points, created_at, updated_at`

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Name, &u.WhatsAppNumber, &u.IsAdmin,
		&u.ReferralCode, &u.LoyaltyPoints, &u.CreatedAt, &u.UpdatedAt)
}

// Upsert keys users by email, the identity handed over by the OAuth
// provider. An existing name is kept and admin rights are never revoked here.
func (r *pgUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.ReferralCode == "" {
		user.ReferralCode = referralCode(user.ID)
	}
	query := `INSERT INTO users (id, email, name, is_admin, referral_code, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			  ON CONFLICT (email) DO UPDATE SET
			      name = COALESCE(NULLIF(users.name, ''), EXCLUDED.name),
			      is_admin = users.is_admin OR EXCLUDED.is_admin,
			      updated_at = NOW()
			  RETURNING ` + userColumns
	err := scanUser(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.IsAdmin, user.ReferralCode,
	), user)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user := &model.User{}
	err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) UpdateContact(ctx context.Context, id uuid.UUID, name, whatsapp string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, whatsapp_number = $3, updated_at = NOW() WHERE id = $1`,
		id, name, whatsapp,
	)
	if err != nil {
		return fmt.Errorf("update user contact: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgUserRepo) ListCustomers(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE NOT is_admin`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE NOT is_admin ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func referralCode(id uuid.UUID) string {
	return "REF-" + id.String()[:8]
}

// Package repository reads the assignable user pool.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is an account in the candidate pool as stored in the users table.
type User struct {
	UID         uuid.UUID
	Name        string
	CompanyName string
	Email       string
	Role        string
	Plan        string
	Status      string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindActiveByRoles returns every active user holding one of the given
// roles.
func (r *Repository) FindActiveByRoles(ctx context.Context, roles []string) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT uid, name, company_name, email, role, plan, status
		FROM users
		WHERE status = 'active' AND role = ANY($1)
	`, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.UID, &user.Name, &user.CompanyName, &user.Email, &user.Role, &user.Plan, &user.Status); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

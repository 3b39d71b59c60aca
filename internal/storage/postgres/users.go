package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/storage"
)

const selectUser = `
	SELECT u.id::text, u.email, u.name, COALESCE(r.role, 'user'), u.password_hash, u.created_at
	FROM users u
	LEFT JOIN user_roles r ON r.user_id = u.id
	`

// CreateUser inserts a user row together with its role row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const insertUser = `
			INSERT INTO users (id, email, name, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at;`
		if err := tx.QueryRow(ctx, insertUser, user.ID, strings.TrimSpace(user.Email), user.Name, user.PasswordHash).Scan(&user.CreatedAt); err != nil {
			return err
		}
		const insertRole = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2);`
		_, err := tx.Exec(ctx, insertRole, user.ID, string(user.Role))
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// FindByID fetches a user by id.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, storage.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, selectUser+`WHERE u.id = $1;`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by email address, ignoring case.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+`WHERE lower(u.email) = lower($1);`, strings.TrimSpace(email))
	return scanUser(row)
}

// ListUsers returns every user, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, selectUser+`ORDER BY u.created_at ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateRole sets a user's role, creating the role row if it is missing.
func (s *Store) UpdateRole(ctx context.Context, id string, role models.Role) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, storage.ErrNotFound
	}
	const upsert = `
		INSERT INTO user_roles (user_id, role)
		SELECT id, $2 FROM users WHERE id = $1
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role;`
	tag, err := s.pool.Exec(ctx, upsert, id, string(role))
	if err != nil {
		return models.User{}, fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, storage.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// DeleteUser removes a user; role rows cascade and authored posts keep a null author.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.PasswordHash, &user.CreatedAt); err != nil {
		return models.User{}, notFound(err)
	}
	user.Role = models.Role(role)
	return user, nil
}

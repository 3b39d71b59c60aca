package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/storage"
)

const selectPost = `
	SELECT id::text, title, content, type, status, to_char(date, 'YYYY-MM-DD'), time, image, author::text, created_at
	FROM posts
	`

// CreatePost inserts a post and returns it with its generated fields.
func (s *Store) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO posts (id, title, content, type, status, date, time, image, author)
		VALUES ($1, $2, $3, $4, $5, $6::text::date, $7, $8, $9::text::uuid)
		RETURNING created_at;`
	err := s.pool.QueryRow(ctx, query,
		post.ID, post.Title, post.Content, string(post.Type), string(post.Status),
		post.Date, post.Time, post.Image, post.Author,
	).Scan(&post.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Post{}, storage.ErrAlreadyExists
		}
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// ListPosts returns posts ordered by date, newest first, undated posts last.
func (s *Store) ListPosts(ctx context.Context, q storage.PostQuery) ([]models.Post, error) {
	query := selectPost
	var args []any
	if q.Status != "" {
		query += `WHERE status = $1 `
		args = append(args, string(q.Status))
	}
	query += `ORDER BY date DESC NULLS LAST, created_at DESC;`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// DeletePost removes a post by id.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RecordVisit stores one anonymous page view.
func (s *Store) RecordVisit(ctx context.Context, at time.Time) error {
	if _, err := s.pool.Exec(ctx, `INSERT INTO visitors (created_at) VALUES ($1);`, at); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// ListVisits returns visit timestamps at or after since.
func (s *Store) ListVisits(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `SELECT created_at FROM visitors WHERE created_at >= $1 ORDER BY created_at;`, since)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

func scanPost(row pgx.Row) (models.Post, error) {
	var post models.Post
	var typ, status string
	if err := row.Scan(&post.ID, &post.Title, &post.Content, &typ, &status, &post.Date, &post.Time, &post.Image, &post.Author, &post.CreatedAt); err != nil {
		return models.Post{}, notFound(err)
	}
	post.Type = models.PostType(typ)
	post.Status = models.PostStatus(status)
	return post, nil
}

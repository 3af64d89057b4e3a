package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/blog-api/backend/internal/models"
)

// The author side is a LEFT JOIN so a post whose author row is missing
// is still returned, with Author left nil.
const postSelect = `
	SELECT p.id, p.title, p.content, p.image_url, p.created_at, p.updated_at, p.author_id,
	       u.id, u.email, u.username, u.is_active, u.created_at
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

const searchFilter = ` WHERE p.title ILIKE $1 OR p.content ILIKE $1`

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		p         models.Post
		authorID  *int64
		email     *string
		username  *string
		isActive  *bool
		createdAt *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &p.AuthorID,
		&authorID, &email, &username, &isActive, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if authorID != nil {
		p.Author = &models.User{
			ID:        *authorID,
			Email:     *email,
			Username:  *username,
			IsActive:  *isActive,
			CreatedAt: *createdAt,
		}
	}
	return &p, nil
}

// likePattern turns a search term into a case-insensitive substring
// pattern. Backslash is the default LIKE escape character in PostgreSQL.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func (s *PostgresStore) warnOrphan(p *models.Post) {
	if p.Author == nil {
		s.log.WithField("post_id", p.ID).Warn("post has no author")
	}
}

// ListPosts returns one page of posts, newest first, and the size of the
// whole filtered set. Both come from the same snapshot.
func (s *PostgresStore) ListPosts(ctx context.Context, q models.PostQuery) ([]models.Post, int, error) {
	s.log.WithFields(logrus.Fields{
		"skip": q.Skip, "limit": q.Limit, "search": q.Search,
	}).Debug("listing posts")

	var (
		where string
		args  []any
	)
	if q.Search != "" {
		where = searchFilter
		args = append(args, likePattern(q.Search))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list posts: count: %w", err)
	}

	n := len(args)
	page := fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC OFFSET $%d LIMIT $%d`, n+1, n+2)
	rows, err := tx.Query(ctx, postSelect+where+page, append(args, q.Skip, q.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list posts: scan: %w", err)
		}
		s.warnOrphan(p)
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("list posts: commit: %w", err)
	}
	return posts, total, nil
}

// GetPost returns nil, nil when the post does not exist.
func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	s.warnOrphan(p)
	return p, nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, in models.PostInput, authorID int64) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `
		WITH p AS (
			INSERT INTO posts (title, content, image_url, author_id)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)
		SELECT p.id, p.title, p.content, p.image_url, p.created_at, p.updated_at, p.author_id,
		       u.id, u.email, u.username, u.is_active, u.created_at
		FROM p
		LEFT JOIN users u ON u.id = p.author_id`,
		in.Title, in.Content, in.ImageURL, authorID,
	))
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.warnOrphan(p)
	return p, nil
}

// lockOwned locks the post row and checks that actorID wrote it.
func lockOwned(ctx context.Context, tx pgx.Tx, id, actorID int64) error {
	var authorID int64
	err := tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1 FOR UPDATE`, id).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if authorID != actorID {
		return ErrForbidden
	}
	return nil
}

// UpdatePost overwrites only the fields set in patch and refreshes
// updated_at. It returns ErrNotFound for a missing post and ErrForbidden
// when actorID is not the author, in that order.
func (s *PostgresStore) UpdatePost(ctx context.Context, id, actorID int64, patch models.PostPatch) (*models.Post, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update post: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOwned(ctx, tx, id, actorID); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	if !patch.Empty() {
		_, err = tx.Exec(ctx, `
		UPDATE posts SET
			title      = COALESCE($2, title),
			content    = COALESCE($3, content),
			image_url  = COALESCE($4, image_url),
			updated_at = clock_timestamp()
		WHERE id = $1`,
			id, patch.Title, patch.Content, patch.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("update post: %w", err)
		}
	}

	p, err := scanPost(tx.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("update post: reload: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("update post: commit: %w", err)
	}
	s.warnOrphan(p)
	return p, nil
}

// DeletePost removes a post and returns it as it was. Errors follow UpdatePost.
func (s *PostgresStore) DeletePost(ctx context.Context, id, actorID int64) (*models.Post, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete post: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOwned(ctx, tx, id, actorID); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("delete post: %w", err)
	}

	p, err := scanPost(tx.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("delete post: load: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete post: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("delete post: commit: %w", err)
	}
	return p, nil
}

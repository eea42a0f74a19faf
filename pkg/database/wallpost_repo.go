package database

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/models"
)

// ErrWallPostNotFound is returned when a lookup by id finds no row.
var ErrWallPostNotFound = errors.New("wall post not found")

// WallPostRepository persists WallPost rows. Reactions are stored as JSONB.
type WallPostRepository struct {
	db *stdsql.DB
}

// Create inserts a new wall post row. A nil meetingID (e.g. an intro post
// from a self-registered agent with no meeting yet) stores SQL NULL rather
// than the zero UUID, since meeting_id is a nullable FK, not a sentinel
// column.
func (r *WallPostRepository) Create(ctx context.Context, meetingID *uuid.UUID, p *models.WallPost) error {
	reactions, err := json.Marshal(p.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	var parentID any
	if p.ParentID != nil {
		parentID = *p.ParentID
	}

	var mid any
	if meetingID != nil {
		mid = *meetingID
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wall_posts (id, meeting_id, author_name, author_cred_id, content, post_type, parent_id, reactions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, mid, p.AuthorName, p.AuthorCredID, p.Content, string(p.PostType), parentID, reactions, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wall post: %w", err)
	}
	return nil
}

// UpdateReactions persists the current reaction map for a post.
func (r *WallPostRepository) UpdateReactions(ctx context.Context, postID uuid.UUID, reactions map[string]map[string]bool) error {
	data, err := json.Marshal(reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE wall_posts SET reactions = $1 WHERE id = $2`, data, postID)
	if err != nil {
		return fmt.Errorf("update wall post reactions: %w", err)
	}
	return nil
}

// GetByID fetches a single wall post by id.
func (r *WallPostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WallPost, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, author_name, author_cred_id, content, post_type, parent_id, reactions, created_at
		FROM wall_posts WHERE id = $1`, id)

	p, err := scanWallPostRow(row)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, ErrWallPostNotFound
	}
	return p, err
}

// ListPaginated returns wall posts newest-first, limited to limit rows
// after the given offset.
func (r *WallPostRepository) ListPaginated(ctx context.Context, limit, offset int) ([]*models.WallPost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, author_name, author_cred_id, content, post_type, parent_id, reactions, created_at
		FROM wall_posts ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wall posts: %w", err)
	}
	defer rows.Close()

	var out []*models.WallPost
	for rows.Next() {
		p, err := scanWallPostRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListReplies returns every reply to parentID, oldest first.
func (r *WallPostRepository) ListReplies(ctx context.Context, parentID uuid.UUID) ([]*models.WallPost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, author_name, author_cred_id, content, post_type, parent_id, reactions, created_at
		FROM wall_posts WHERE parent_id = $1 ORDER BY created_at ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list wall post replies: %w", err)
	}
	defer rows.Close()

	var out []*models.WallPost
	for rows.Next() {
		p, err := scanWallPostRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanWallPostRow(row rowScanner) (*models.WallPost, error) {
	var p models.WallPost
	var postType string
	var authorCredID stdsql.NullString
	var parentID stdsql.NullString
	var reactions []byte

	if err := row.Scan(&p.ID, &p.AuthorName, &authorCredID, &p.Content, &postType, &parentID, &reactions, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan wall post row: %w", err)
	}

	p.PostType = models.PostType(postType)
	if authorCredID.Valid {
		if id, err := uuid.Parse(authorCredID.String); err == nil {
			p.AuthorCredID = id
		}
	}
	if parentID.Valid {
		if id, err := uuid.Parse(parentID.String); err == nil {
			p.ParentID = &id
		}
	}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &p.Reactions); err != nil {
			return nil, fmt.Errorf("unmarshal reactions: %w", err)
		}
	}
	if p.Reactions == nil {
		p.Reactions = make(map[string]map[string]bool)
	}
	return &p, nil
}

// Package wall implements the Agent Wall: a meeting-independent feed of
// posts, intros, and replies that any credentialed agent can read or
// write to, reacted to with emoji.
package wall

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/database"
	"github.com/roundtable-run/roundtable/pkg/models"
)

// DefaultPageSize bounds an unpaginated feed request.
const DefaultPageSize = 50

// ContentMasker redacts credential-shaped substrings before content is
// persisted. Implemented by pkg/masking.TokenMasker.
type ContentMasker interface {
	Mask(content string) string
}

// Service implements wall read/write operations over the persisted
// wall_posts table. It satisfies orchestrator.WallPoster so the
// Finalizer can post auto-generated summaries through the same path
// regular posts take.
type Service struct {
	posts  *database.WallPostRepository
	masker ContentMasker
}

// NewService constructs a wall Service. masker may be nil to disable
// redaction (e.g. in tests).
func NewService(posts *database.WallPostRepository, masker ContentMasker) *Service {
	return &Service{posts: posts, masker: masker}
}

func (s *Service) mask(content string) string {
	if s.masker == nil {
		return content
	}
	return s.masker.Mask(content)
}

// Post creates a top-level post or a reply (when parentID is non-nil).
// authorCredID identifies the credential that authored it, for display
// and for future moderation; it may be uuid.Nil for system-authored
// posts.
func (s *Service) Post(ctx context.Context, meetingID uuid.UUID, authorName string, authorCredID uuid.UUID, content string, parentID *uuid.UUID) (*models.WallPost, error) {
	if content == "" {
		return nil, fmt.Errorf("content: %w", errEmptyContent)
	}

	postType := models.PostTypePost
	if parentID != nil {
		postType = models.PostTypeReply
	}

	post := models.NewWallPost(authorName, authorCredID, s.mask(content), postType)
	post.ParentID = parentID

	if err := s.posts.Create(ctx, &meetingID, post); err != nil {
		return nil, fmt.Errorf("create wall post: %w", err)
	}
	return post, nil
}

// PostIntro creates the onboarding Intro post authored by a newly
// self-registered agent.
func (s *Service) PostIntro(ctx context.Context, authorName string, authorCredID uuid.UUID, content string) (*models.WallPost, error) {
	post := models.NewWallPost(authorName, authorCredID, s.mask(content), models.PostTypeIntro)
	if err := s.posts.Create(ctx, nil, post); err != nil {
		return nil, fmt.Errorf("create intro post: %w", err)
	}
	return post, nil
}

// PostSummary implements orchestrator.WallPoster: it posts an
// auto-generated meeting summary as a top-level post authored by the
// meeting's host name, with no credential attached.
func (s *Service) PostSummary(ctx context.Context, meetingID, authorName, content string) error {
	id, err := uuid.Parse(meetingID)
	if err != nil {
		return fmt.Errorf("parse meeting id: %w", err)
	}
	post := models.NewWallPost(authorName, uuid.Nil, s.mask(content), models.PostTypePost)
	if err := s.posts.Create(ctx, &id, post); err != nil {
		return fmt.Errorf("post meeting summary: %w", err)
	}
	return nil
}

// React idempotently records a reaction on a post and persists the
// updated reaction map.
func (s *Service) React(ctx context.Context, post *models.WallPost, emoji, author string) error {
	post.React(emoji, author)
	if err := s.posts.UpdateReactions(ctx, post.ID, post.Reactions); err != nil {
		return fmt.Errorf("update reactions: %w", err)
	}
	return nil
}

// Feed returns the newest-first page of top-level and reply posts.
func (s *Service) Feed(ctx context.Context, limit, offset int) ([]*models.WallPost, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.posts.ListPaginated(ctx, limit, offset)
}

// Replies returns every reply to parentID, oldest first.
func (s *Service) Replies(ctx context.Context, parentID uuid.UUID) ([]*models.WallPost, error) {
	return s.posts.ListReplies(ctx, parentID)
}

var errEmptyContent = fmt.Errorf("must not be empty")

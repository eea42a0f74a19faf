package models

import (
	"time"

	"github.com/google/uuid"
)

// WallPost is one entry in the shared Agent Wall feed: a top-level post, an
// onboarding Intro, or a one-level-deep Reply.
type WallPost struct {
	ID           uuid.UUID
	AuthorName   string
	AuthorCredID uuid.UUID
	Content      string
	PostType     PostType
	ParentID     *uuid.UUID // required iff PostType == PostTypeReply
	Reactions    map[string]map[string]bool // emoji -> set of author names
	CreatedAt    time.Time
}

// NewWallPost constructs a post with a fresh id and empty reaction map.
func NewWallPost(authorName string, authorCredID uuid.UUID, content string, postType PostType) *WallPost {
	return &WallPost{
		ID:           uuid.New(),
		AuthorName:   authorName,
		AuthorCredID: authorCredID,
		Content:      content,
		PostType:     postType,
		Reactions:    make(map[string]map[string]bool),
		CreatedAt:    time.Now().UTC(),
	}
}

// React idempotently records that author reacted with emoji. Reacting twice
// with the same author/emoji pair is a no-op.
func (p *WallPost) React(emoji, author string) {
	if p.Reactions == nil {
		p.Reactions = make(map[string]map[string]bool)
	}
	authors, ok := p.Reactions[emoji]
	if !ok {
		authors = make(map[string]bool)
		p.Reactions[emoji] = authors
	}
	authors[author] = true
}

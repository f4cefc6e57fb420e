package model

import (
	"encoding/json"
	"fmt"

	"github.com/sakif/inkwell/internal/apperror"
)

// Every status type persists as the same small integer vocabulary:
// 1 = active/published, 2 = inactive/draft, 3 = deleted.
// Each entity gets its own type so a comment status can never be passed
// where an article status is expected.

// Status is the generic lifecycle used by users and categories.
type Status int

const (
	StatusActive   Status = 1
	StatusInactive Status = 2
	StatusDeleted  Status = 3
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusDeleted
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusDeleted:
		return "deleted"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ArticleStatus is the article state machine.
//
//	Draft ⇄ Published
//	Draft, Published → Deleted (terminal)
type ArticleStatus int

const (
	ArticlePublished ArticleStatus = 1
	ArticleDraft     ArticleStatus = 2
	ArticleDeleted   ArticleStatus = 3
)

// InitialArticleStatus picks the creation state from the publish flag.
func InitialArticleStatus(publish bool) ArticleStatus {
	if publish {
		return ArticlePublished
	}
	return ArticleDraft
}

func (s ArticleStatus) Valid() bool {
	return s == ArticlePublished || s == ArticleDraft || s == ArticleDeleted
}

func (s ArticleStatus) String() string {
	switch s {
	case ArticlePublished:
		return "published"
	case ArticleDraft:
		return "draft"
	case ArticleDeleted:
		return "deleted"
	}
	return fmt.Sprintf("article_status(%d)", int(s))
}

// ParseArticleStatus accepts the names produced by String.
func ParseArticleStatus(s string) (ArticleStatus, error) {
	switch s {
	case "published":
		return ArticlePublished, nil
	case "draft":
		return ArticleDraft, nil
	case "deleted":
		return ArticleDeleted, nil
	}
	return 0, fmt.Errorf("unknown article status %q", s)
}

// MarshalJSON writes the status by name so clients never see raw codes.
func (s ArticleStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ArticleStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("article status must be a string: %w", err)
	}
	parsed, err := ParseArticleStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CanTransition reports whether an article in state s may move to next.
// Deleted is terminal; staying in the same state is always allowed.
func (s ArticleStatus) CanTransition(next ArticleStatus) error {
	if !next.Valid() {
		return apperror.ValidationFailed("status", fmt.Sprintf("unknown article status %d", int(next)))
	}
	if s == ArticleDeleted {
		return apperror.InvalidState("article is deleted")
	}
	return nil
}

// ModerationStatus is the two-state lifecycle for comments and likes.
// Inactive is never used for these entities.
type ModerationStatus int

const (
	ModerationActive  ModerationStatus = 1
	ModerationDeleted ModerationStatus = 3
)

func (s ModerationStatus) Valid() bool {
	return s == ModerationActive || s == ModerationDeleted
}

func (s ModerationStatus) IsActive() bool {
	return s == ModerationActive
}

// Toggled returns the opposite state. Only likes cycle between states;
// comment deletion is terminal and no code path toggles a comment.
func (s ModerationStatus) Toggled() ModerationStatus {
	if s == ModerationActive {
		return ModerationDeleted
	}
	return ModerationActive
}

func (s ModerationStatus) String() string {
	switch s {
	case ModerationActive:
		return "active"
	case ModerationDeleted:
		return "deleted"
	}
	return fmt.Sprintf("moderation_status(%d)", int(s))
}

func (s ModerationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

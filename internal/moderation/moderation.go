package moderation

import "context"

// Label is one category flagged by the moderation backend with its score.
type Label struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Decision is the outcome of moderating one image.
type Decision struct {
	Safe   bool    `json:"safe"`
	Labels []Label `json:"labels,omitempty"`
}

// Moderator screens image bytes before they are forwarded to the generation
// API or persisted as uploads.
type Moderator interface {
	Moderate(ctx context.Context, imageData []byte, mime string) (Decision, error)
}

// AllowAll is the non-production stub used when no moderation backend is
// configured: every image passes.
type AllowAll struct{}

func (AllowAll) Moderate(_ context.Context, _ []byte, _ string) (Decision, error) {
	return Decision{Safe: true}, nil
}

var _ Moderator = AllowAll{}

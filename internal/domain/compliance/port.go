package compliance

import "context"

// ScoreRequest is the validated input to one analysis attempt. The caller
// guarantees a non-empty trimmed document, a non-empty regulation set and a
// present credential before the request reaches a Scorer.
type ScoreRequest struct {
	Document    string
	Regulations []Regulation
	Credential  string
}

// Scorer port (interface to the external scoring backend). One invocation is
// exactly one outbound call: no retries, no caching, no coalescing.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (string, error)
}

// ArtifactStore port (interface for archiving exported reports).
type ArtifactStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

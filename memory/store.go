package memory

import (
	"context"
	"errors"
	"strings"

	"github.com/petasbytes/research-agent/internal/transcript"
)

// ErrInvalidSessionID is returned for empty ids or ids containing path separators.
var ErrInvalidSessionID = errors.New("invalid session id")

// Store loads and saves transcripts by session id.
type Store interface {
	// Load returns nil, nil when the session does not exist.
	Load(ctx context.Context, sessionID string) ([]transcript.Message, error)
	Save(ctx context.Context, sessionID string, msgs []transcript.Message) error
	Delete(ctx context.Context, sessionID string) error
}

func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return ErrInvalidSessionID
	}
	return nil
}

package session

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
)

// Session is the persisted state of an authenticated user between runs: the
// bearer token plus enough identity to label log entries.
type Session struct {
	Token   string    `json:"token"`
	UserID  string    `json:"userId,omitempty"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"savedAt"`
}

// ErrNoSession is returned by Load when no session has been persisted.
var ErrNoSession = pkgerrors.New(pkgerrors.CodeUnauthorized, "aucune session active, veuillez vous connecter")

// Store persists the current session. The file backend mirrors what the web
// frontend keeps in localStorage; the redis backend shares one session across
// processes.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// TokenSource adapts a Store into the bearer-token lookup the HTTP client
// needs. A missing session yields an empty token; the client converts that
// into an authentication failure without a round trip.
type TokenSource struct {
	store Store
}

func NewTokenSource(store Store) *TokenSource {
	return &TokenSource{store: store}
}

func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if t == nil || t.store == nil {
		return "", nil
	}
	s, err := t.store.Load(ctx)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeUnauthorized {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(s.Token), nil
}

package session

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
	redisclient "github.com/adoptipet/adoptipet-client/pkg/redis"
)

// RedisStore shares one session across processes. The key is fixed per
// installation: one CLI profile maps to at most one authenticated user, like
// one browser profile.
type RedisStore struct {
	client *redisclient.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(client *redisclient.Client, profile string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis client is required")
	}
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{
		client: client,
		key:    client.SessionKey(profile),
		ttl:    ttl,
	}, nil
}

func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key)
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, ErrNoSession
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lecture de la session")
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "session corrompue")
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	if s.Token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "un jeton est requis")
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encodage de la session")
	}
	if err := r.client.Set(ctx, r.key, string(raw), r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ecriture de la session")
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "suppression de la session")
	}
	return nil
}

package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCookieName is read when no bearer token is supplied.
const SessionCookieName = "bizdesk_session"

// SessionManager stores bearer-token sessions in Redis.
type SessionManager struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type sessionPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, prefix string, ttl time.Duration) *SessionManager {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionManager{client: client, prefix: prefix, ttl: ttl}
}

// Create opens a session for the principal and returns its token.
func (sm *SessionManager) Create(ctx context.Context, p Principal) (string, error) {
	if p.ID == "" {
		return "", ErrUnauthenticated
	}
	token := generateToken()
	data, err := json.Marshal(sessionPayload{UserID: p.ID, Email: p.Email, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.redisKey(token), data, sm.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Load resolves a token into the principal it was issued for.
func (sm *SessionManager) Load(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthenticated
	}
	payload, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Principal{}, err
	}
	if stored.UserID == "" {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{ID: stored.UserID, Email: stored.Email}, nil
}

// Destroy deletes the session behind token.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := sm.client.Del(ctx, sm.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (sm *SessionManager) redisKey(token string) string {
	return sm.prefix + ":" + token
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

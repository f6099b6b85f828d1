package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionSubject = "admin"

var (
	ErrMissingToken = errors.New("missing admin token")
	ErrInvalidToken = errors.New("invalid admin token")
	ErrNoSecret     = errors.New("admin token or token hash must be set")
)

type GuardConfig struct {
	// Token is the plain shared secret.
	Token string
	// TokenHash is a bcrypt hash of the shared secret, for deployments that
	// keep the plain value out of their environment.
	TokenHash string
	// SessionSecret signs session tokens. It defaults to Token, or to a
	// random per-process key when only TokenHash is set.
	SessionSecret string
	// SessionTTL is the lifetime of tokens minted by IssueSession.
	SessionTTL time.Duration
}

// Guard verifies admin credentials.
type Guard struct {
	token      []byte
	tokenHash  []byte
	jwt        *JWT
	sessionTTL time.Duration
}

func NewGuard(cfg GuardConfig) (*Guard, error) {
	if cfg.Token == "" && cfg.TokenHash == "" {
		return nil, ErrNoSecret
	}

	// the hash is not a secret, so it never signs sessions
	signingKey := cfg.SessionSecret
	if signingKey == "" {
		signingKey = cfg.Token
	}
	if signingKey == "" {
		signingKey = rand.Text()
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	g := &Guard{
		jwt:        NewJWT(signingKey),
		sessionTTL: ttl,
	}
	if cfg.Token != "" {
		g.token = []byte(cfg.Token)
	}
	if cfg.TokenHash != "" {
		g.tokenHash = []byte(cfg.TokenHash)
	}
	return g, nil
}

// Verify checks a presented credential: the shared secret itself, a value
// matching the configured bcrypt hash, or a session token from IssueSession.
func (g *Guard) Verify(token string) (Admin, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Admin{}, ErrMissingToken
	}

	if g.token != nil && subtle.ConstantTimeCompare([]byte(token), g.token) == 1 {
		return Admin{method: "token", verified: true}, nil
	}

	// session tokens are JWTs; skip the parse for anything that can't be one
	if strings.Count(token, ".") == 2 {
		if sub, err := g.jwt.Verify(token); err == nil && sub == sessionSubject {
			return Admin{method: "session", verified: true}, nil
		}
	}

	if g.tokenHash != nil && bcrypt.CompareHashAndPassword(g.tokenHash, []byte(token)) == nil {
		return Admin{method: "token_hash", verified: true}, nil
	}

	return Admin{}, ErrInvalidToken
}

// IssueSession mints a short-lived admin token that can be shared instead of
// the long-lived secret.
func (g *Guard) IssueSession() (string, time.Time, error) {
	return g.jwt.Sign(sessionSubject, g.sessionTTL)
}

// GenerateToken returns a fresh random admin secret for deployments that did
// not configure one.
func GenerateToken() string {
	return uuid.NewString()
}

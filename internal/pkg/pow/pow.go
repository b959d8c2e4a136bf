/*
Package pow implements the Proof-of-Work (PoW) mechanism that gates area creation.

A client fetches a challenge nonce, searches for a counter whose SHA-256 hash over
nonce+counter starts with the required number of hex zeros, and redeems the solution
for a single-use Proof Token that it presents on the gated request.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/resp"
)

const (
	// TokenHeaderKey is the HTTP header key used by the client to send the Proof Token.
	TokenHeaderKey = "X-PoW-Token"

	// TokenQueryParam is the query parameter fallback for the Proof Token.
	TokenQueryParam = "pow_token"

	// ProofTokenDuration is the validity period for the Proof Token issued after successful PoW validation.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is the validity period for the challenge Nonce.
	NonceExpiryDuration = 5 * time.Minute

	cleanupInterval = time.Minute
)

var (
	ErrNonceInvalid     = errors.New("nonce expired or invalid")
	ErrInsufficientWork = errors.New("proof does not meet difficulty requirement")
)

// Challenge is handed to clients before a gated request.
type Challenge struct {
	Nonce      string `json:"nonce"`
	Difficulty int    `json:"difficulty"`
}

// Manager issues challenges and Proof Tokens. A difficulty of zero disables the gate.
type Manager struct {
	difficulty int

	mu         sync.Mutex
	nonceStore map[string]time.Time
	tokenStore map[string]time.Time

	now func() time.Time
}

// NewManager creates a Manager whose cleanup goroutine runs until ctx is done.
func NewManager(ctx context.Context, difficulty int) *Manager {
	m := &Manager{
		difficulty: difficulty,
		nonceStore: make(map[string]time.Time),
		tokenStore: make(map[string]time.Time),
		now:        time.Now,
	}

	if m.Enabled() {
		go m.cleanupExpiredEntries(ctx)
	}
	return m
}

func (m *Manager) Enabled() bool {
	return m.difficulty > 0
}

// NewChallenge generates and stores a fresh nonce.
func (m *Manager) NewChallenge() Challenge {
	nonce := uuid.NewString()

	m.mu.Lock()
	m.nonceStore[nonce] = m.now().Add(NonceExpiryDuration)
	m.mu.Unlock()

	return Challenge{Nonce: nonce, Difficulty: m.difficulty}
}

// Solves reports whether counter solves nonce at the given difficulty.
func Solves(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

// Redeem consumes nonce if counter solves it and returns a Proof Token.
func (m *Manager) Redeem(nonce, counter string) (string, error) {
	if !Solves(nonce, counter, m.difficulty) {
		return "", ErrInsufficientWork
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.nonceStore[nonce]
	if !ok || m.now().After(expiry) {
		return "", ErrNonceInvalid
	}
	delete(m.nonceStore, nonce)

	token := uuid.NewString()
	m.tokenStore[token] = m.now().Add(ProofTokenDuration)
	return token, nil
}

// consume spends token. Each token admits exactly one request.
func (m *Manager) consume(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokenStore[token]
	if !ok {
		return false
	}
	delete(m.tokenStore, token)
	return !m.now().After(expiry)
}

// Middleware rejects requests without a valid Proof Token while the gate is enabled.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get(TokenHeaderKey)
		if token == "" {
			token = r.URL.Query().Get(TokenQueryParam)
		}

		if token == "" || !m.consume(token) {
			logx.Debug("Request rejected: missing or spent proof token.", "path", r.URL.Path)
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Manager) cleanupExpiredEntries(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.prune()
		}
	}
}

func (m *Manager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for nonce, expiry := range m.nonceStore {
		if now.After(expiry) {
			delete(m.nonceStore, nonce)
		}
	}
	for token, expiry := range m.tokenStore {
		if now.After(expiry) {
			delete(m.tokenStore, token)
		}
	}
}

/*
Package pow implements the proof-of-work gate in front of account registration.

A client fetches a nonce, searches for a counter such that sha256(nonce+counter)
has Difficulty leading hex zeros, and trades the solution for a short-lived proof
token. The register endpoint accepts only requests carrying a live proof token,
and each token is consumed on use.
*/
package pow

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header carrying the proof token.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is how long a proof token stays valid.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is how long a challenge nonce stays valid.
	NonceExpiryDuration = 5 * time.Minute

	cleanupInterval = time.Minute
)

var (
	// ErrNonceInvalid is returned for an unknown, expired or already used nonce.
	ErrNonceInvalid = errors.New("nonce expired or invalid")

	// ErrProofInsufficient is returned when the hash does not meet the difficulty.
	ErrProofInsufficient = errors.New("proof does not meet difficulty requirement")
)

// Gate issues challenges and proof tokens. It is safe for concurrent use.
type Gate struct {
	difficulty int
	now        func() time.Time

	mu     sync.Mutex
	nonces map[string]time.Time
	tokens map[string]time.Time

	stop chan struct{}
	once sync.Once
}

// NewGate creates a Gate and starts its expiry sweeper. Stop releases it.
// A difficulty of 0 disables the gate: Enabled reports false.
func NewGate(difficulty int) *Gate {
	g := &Gate{
		difficulty: difficulty,
		now:        time.Now,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
		stop:       make(chan struct{}),
	}

	go g.sweepLoop()

	return g
}

// Enabled reports whether registration requires a proof token.
func (g *Gate) Enabled() bool {
	return g.difficulty > 0
}

// Difficulty returns the number of leading hex zeros required.
func (g *Gate) Difficulty() int {
	return g.difficulty
}

// Challenge returns a fresh nonce.
func (g *Gate) Challenge() string {
	nonce := uuid.New().String()

	g.mu.Lock()
	g.nonces[nonce] = g.now().Add(NonceExpiryDuration)
	g.mu.Unlock()

	return nonce
}

// Solve checks counter against nonce and, on success, consumes the nonce and
// returns a proof token.
func (g *Gate) Solve(nonce, counter string) (string, error) {
	if !meetsDifficulty(nonce, counter, g.difficulty) {
		return "", ErrProofInsufficient
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.nonces[nonce]
	if !ok || g.now().After(expiry) {
		return "", ErrNonceInvalid
	}
	delete(g.nonces, nonce)

	token := uuid.New().String()
	g.tokens[token] = g.now().Add(ProofTokenDuration)
	return token, nil
}

// Redeem consumes the proof token carried by r, from the X-PoW-Token header
// or the pow_token query parameter. It reports whether the token was live.
func (g *Gate) Redeem(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get("pow_token")
	}
	if token == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.tokens[token]
	if !ok {
		return false
	}
	delete(g.tokens, token)

	return !g.now().After(expiry)
}

// Stop ends the sweeper goroutine.
func (g *Gate) Stop() {
	g.once.Do(func() { close(g.stop) })
}

func (g *Gate) sweepLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweep()
		case <-g.stop:
			return
		}
	}
}

func (g *Gate) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for nonce, expiry := range g.nonces {
		if now.After(expiry) {
			delete(g.nonces, nonce)
		}
	}
	for token, expiry := range g.tokens {
		if now.After(expiry) {
			delete(g.tokens, token)
		}
	}
}

func meetsDifficulty(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

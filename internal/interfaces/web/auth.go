package web

import (
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"

	"github.com/example/fsmgate/internal/application/usecases"
	"github.com/example/fsmgate/internal/internaltypes"
)

// agentAuth requires the agent key on every tool call. Keys that passed
// bcrypt once are remembered by digest.
type agentAuth struct {
	keys usecases.AgentKeys

	mu   sync.RWMutex
	seen map[[sha256.Size]byte]struct{}
}

func newAgentAuth(keys usecases.AgentKeys) *agentAuth {
	return &agentAuth{keys: keys, seen: map[[sha256.Size]byte]struct{}{}}
}

func agentKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-Agent-Key")); k != "" {
		return k
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (a *agentAuth) check(key string) error {
	if key == "" {
		return internaltypes.ErrUnauthorized
	}
	sum := sha256.Sum256([]byte(key))
	a.mu.RLock()
	_, ok := a.seen[sum]
	a.mu.RUnlock()
	if ok {
		return nil
	}
	if err := a.keys.Verify(key); err != nil {
		return err
	}
	a.mu.Lock()
	a.seen[sum] = struct{}{}
	a.mu.Unlock()
	return nil
}

func (a *agentAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.check(agentKey(r)); err != nil {
			logger.Warningf("%s %s: rejected agent key from %s", r.Method, r.URL.Path, r.RemoteAddr)
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

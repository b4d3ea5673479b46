package service

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// defaultSessionCacheSize bounds the number of in-flight negotiations held per tenant.
const defaultSessionCacheSize = 1024

// pendingNegotiation holds the original request of an in-flight multi round
// negotiation together with the number of challenge rounds already consumed.
// Entries are never mutated after insertion.
type pendingNegotiation struct {
	request *TokenRequest
	round   int
}

// sessionCache is the bounded per-tenant store of in-flight negotiations,
// keyed by negotiation context identifier. Eviction is LRU under capacity
// pressure, an evicted negotiation silently dies and the client restarts.
type sessionCache struct {
	entries *lru.Cache[string, *pendingNegotiation]
}

func newSessionCache(size int) (*sessionCache, error) {
	if size <= 0 {
		size = defaultSessionCacheSize
	}
	c, err := lru.New[string, *pendingNegotiation](size)
	if err != nil {
		return nil, errors.Wrap(err, "session cache")
	}
	return &sessionCache{entries: c}, nil
}

// save stores the negotiation under the given context identifier.
func (s *sessionCache) save(ctxID string, neg *pendingNegotiation) {
	s.entries.Add(ctxID, neg)
}

// retrieve returns the negotiation of the given context identifier, false when
// it was never saved or already evicted.
func (s *sessionCache) retrieve(ctxID string) (*pendingNegotiation, bool) {
	return s.entries.Get(ctxID)
}

// remove drops the negotiation of the given context identifier.
func (s *sessionCache) remove(ctxID string) {
	s.entries.Remove(ctxID)
}

package stealth

import (
	"math/rand"
	"sync"
	"time"
)

// Cookie is a minimal cookie representation carried between requests of the
// same session. The render backend returns cookies after each page load and
// expects them back on the next one.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

type session struct {
	fingerprint Fingerprint
	cookies     []Cookie
	createdAt   time.Time
	lastUsed    time.Time
}

// Provider hands out one consistent fingerprint per session key. The session
// store is bounded: when it grows past maxSessions the least recently used
// session is evicted, which caps memory in long-running deployments.
type Provider struct {
	mu          sync.Mutex
	rng         *rand.Rand
	sessions    map[string]*session
	maxSessions int
}

func NewProvider(maxSessions int) *Provider {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Provider{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions:    make(map[string]*session),
		maxSessions: maxSessions,
	}
}

// ForSession returns the fingerprint for key, generating and caching it on
// first use. Subsequent calls with the same key return the identical value.
func (p *Provider) ForSession(key string) Fingerprint {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session(key)
	return s.fingerprint
}

// Cookies returns the cookies currently stored for key.
func (p *Provider) Cookies(key string) []Cookie {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[key]
	if !ok {
		return nil
	}
	s.lastUsed = time.Now()
	out := make([]Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

// SetCookies replaces the cookies for key, creating the session if needed.
func (p *Provider) SetCookies(key string, cookies []Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session(key)
	s.cookies = make([]Cookie, len(cookies))
	copy(s.cookies, cookies)
}

// Delay returns a human-like pause for the next request.
func (p *Provider) Delay(min, max time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return HumanDelay(p.rng, min, max)
}

// Len reports the number of live sessions.
func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// session returns the session for key, creating it (and evicting the LRU
// entry when full) as needed. Caller must hold p.mu.
func (p *Provider) session(key string) *session {
	s, ok := p.sessions[key]
	if !ok {
		if len(p.sessions) >= p.maxSessions {
			p.evictOldest()
		}
		now := time.Now()
		s = &session{
			fingerprint: generate(p.rng),
			createdAt:   now,
			lastUsed:    now,
		}
		p.sessions[key] = s
	}
	s.lastUsed = time.Now()
	return s
}

func (p *Provider) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, s := range p.sessions {
		if oldestKey == "" || s.lastUsed.Before(oldest) {
			oldestKey = key
			oldest = s.lastUsed
		}
	}
	if oldestKey != "" {
		delete(p.sessions, oldestKey)
	}
}

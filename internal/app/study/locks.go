package study

import (
	"sync"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

// tokenLocks serializes requests of one session. Entries are dropped when
// no request holds or waits for them.
type tokenLocks struct {
	mu sync.Mutex
	m  map[domain.SessionToken]*tokenLock
}

type tokenLock struct {
	sync.Mutex
	refs int
}

func newTokenLocks() *tokenLocks {
	return &tokenLocks{m: make(map[domain.SessionToken]*tokenLock)}
}

func (l *tokenLocks) lock(token domain.SessionToken) (unlock func()) {
	l.mu.Lock()
	tl, ok := l.m[token]
	if !ok {
		tl = &tokenLock{}
		l.m[token] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.Lock()

	return func() {
		tl.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.m, token)
		}
		l.mu.Unlock()
	}
}

func (l *tokenLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

package runner

import (
	"fmt"
	"sync"

	"github.com/woofnb/woof/core/invariant"
)

// Pool hands out Sessions according to a cell's side-effect intent:
// shared sessions are keyed by language and reused for every cell of
// that language in the notebook; isolated sessions are created fresh
// per call and must be closed by the caller once the cell finishes,
// never reused.
type Pool struct {
	workdir string

	mu     sync.Mutex
	shared map[string]Session
}

// NewPool creates a session pool rooted at workdir, the directory Sessions
// run in by default (the notebook file's directory).
func NewPool(workdir string) *Pool {
	return &Pool{workdir: workdir, shared: make(map[string]Session)}
}

// Shared returns the persistent session for lang, creating it on first use.
func (p *Pool) Shared(lang string) Session {
	invariant.Precondition(lang != "", "lang cannot be empty")

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.shared[lang]; ok {
		return s
	}
	s := NewLocalSession(fmt.Sprintf("local:%s", lang), p.workdir)
	p.shared[lang] = s
	return s
}

// Isolated returns a new, unpooled session scoped to a single cell. The
// caller owns it and must Close it when the cell finishes.
func (p *Pool) Isolated(lang, cellID string) Session {
	invariant.Precondition(lang != "", "lang cannot be empty")
	invariant.Precondition(cellID != "", "cellID cannot be empty")

	return NewLocalSession(fmt.Sprintf("local:%s:isolated:%s", lang, cellID), p.workdir)
}

// CloseAll closes every pooled shared session. Called once at the end of a
// run.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.shared {
		_ = s.Close()
	}
	p.shared = make(map[string]Session)
}

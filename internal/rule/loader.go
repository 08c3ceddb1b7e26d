package rule

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// WikiFetcher is the slice of the platform client the loader needs.
type WikiFetcher interface {
	WikiPage(ctx context.Context, page string) (string, error)
}

// Loader fetches and validates the rule document from a wiki page, keeping
// the last rule that validated. A failed reload degrades to the previous
// good rule instead of stopping the checker; the failure is logged and
// counted by the caller.
type Loader struct {
	fetcher WikiFetcher
	page    string
	logger  *zap.Logger

	mu       sync.Mutex
	lastGood *Rule
}

// NewLoader creates a Loader for the given wiki page.
func NewLoader(fetcher WikiFetcher, page string, logger *zap.Logger) *Loader {
	return &Loader{fetcher: fetcher, page: page, logger: logger}
}

// Load fetches, parses and validates the current rule document. On failure
// it returns the last-known-good rule when one exists; the error is only
// non-nil when there is nothing to fall back to.
func (l *Loader) Load(ctx context.Context) (Rule, error) {
	raw, err := l.fetcher.WikiPage(ctx, l.page)
	if err != nil {
		err = fmt.Errorf("%w: fetching wiki page %q: %v", ErrConfigMissing, l.page, err)
		return l.fallback(err)
	}

	r, err := Parse([]byte(raw))
	if err != nil {
		return l.fallback(err)
	}

	l.mu.Lock()
	l.lastGood = &r
	l.mu.Unlock()
	return r, nil
}

func (l *Loader) fallback(cause error) (Rule, error) {
	l.mu.Lock()
	last := l.lastGood
	l.mu.Unlock()

	if last == nil {
		return Rule{}, cause
	}
	l.logger.Warn("Rule reload failed, keeping last-known-good rule",
		zap.String("page", l.page),
		zap.Error(cause),
	)
	return *last, nil
}

// Package checker ties the routine-checker pieces together once per
// scheduler tick: reload the rule, list the newest posts, run the escalation
// engine on each, persist the outcome.
//
// # Contract
//
// Posts are processed strictly sequentially, in listing order (newest
// first), and each post's state is persisted before the next post is
// touched, so a crash mid-tick loses at most the in-flight post's update.
// Per-post side-effect failures are logged and isolated to that post; state
// corruption aborts the whole tick and is never retried.
package checker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kdoroschak/curlbot-v2/internal/engine"
	"github.com/kdoroschak/curlbot-v2/internal/platform"
	"github.com/kdoroschak/curlbot-v2/internal/rule"
	"github.com/kdoroschak/curlbot-v2/internal/store"
)

// Checker is the per-tick orchestrator.
type Checker struct {
	client platform.Client
	loader *rule.Loader
	store  *store.Store
	engine *engine.Engine
	logger *zap.Logger
}

// New creates a Checker around an already-constructed engine.
func New(client platform.Client, loader *rule.Loader, st *store.Store, eng *engine.Engine, logger *zap.Logger) *Checker {
	return &Checker{client: client, loader: loader, store: st, engine: eng, logger: logger}
}

// RunTick performs one scan. It returns an error when the tick could not run
// at all (no usable rule, listing exhausted its retries, or state
// corruption); the scheduler simply tries again on the next interval, except
// for corruption, which the caller should treat as fatal.
func (c *Checker) RunTick(ctx context.Context) error {
	if err := c.runTick(ctx); err != nil {
		ticksTotal.WithLabelValues("error").Inc()
		return err
	}
	ticksTotal.WithLabelValues("ok").Inc()
	return nil
}

func (c *Checker) runTick(ctx context.Context) error {
	// The rule is re-fetched and re-validated every tick so wiki edits take
	// effect without a restart; the loader falls back to the last good rule.
	r, err := c.loader.Load(ctx)
	if err != nil {
		configFailuresTotal.Inc()
		return fmt.Errorf("loading rule: %w", err)
	}

	posts, err := c.client.ListNewPosts(ctx, r.MaxPostsPerScan)
	if err != nil {
		return fmt.Errorf("listing posts: %w", err)
	}
	c.logger.Debug("Scanning posts", zap.Int("count", len(posts)))

	for _, post := range posts {
		prior, err := c.store.GetOrCreate(ctx, post.ID, post.URL, post.CreatedAt.Unix())
		if err != nil {
			if errors.Is(err, store.ErrCorrupt) {
				return fmt.Errorf("post %s: %w", post.ID, err)
			}
			return fmt.Errorf("loading state for post %s: %w", post.ID, err)
		}

		if !prior.MonitoringActive {
			postsSkippedTotal.Inc()
			continue
		}

		next, checkErr := c.engine.Check(ctx, r, post, prior)
		postsScannedTotal.Inc()

		// Persist whatever the engine established, even when a side effect
		// failed partway: timestamps for actions that did land must survive.
		if err := c.store.Upsert(ctx, next); err != nil {
			return fmt.Errorf("persisting state for post %s: %w", post.ID, err)
		}
		if checkErr != nil {
			postFailuresTotal.Inc()
			c.logger.Error("Post check failed",
				zap.String("post_id", post.ID),
				zap.Error(checkErr),
			)
		}
	}
	return nil
}

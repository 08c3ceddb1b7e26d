package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kdoroschak/curlbot-v2/internal/platform"
	"github.com/kdoroschak/curlbot-v2/internal/rule"
	"github.com/kdoroschak/curlbot-v2/internal/store"
)

// Report reasons for the timed report step and the fallback closure.
const (
	reportNoComments = "Routine overdue and no comments from OP at all. Please check!"
	reportNoKeyword  = "Routine *possibly* missing. (OP commented but there's no routine keyword.) Please check!"
	reportFallback   = "Monitoring window elapsed without a routine. Closing the case. Please check!"
)

// Actor is the side-effecting slice of the platform client the engine uses.
type Actor interface {
	ReplySticky(ctx context.Context, postID, text string) error
	Report(ctx context.Context, postID, reason string) error
	Remove(ctx context.Context, postID string) error
}

// Engine applies the escalation state machine to one post at a time.
type Engine struct {
	actor  Actor
	logger *zap.Logger
	clock  func() time.Time
}

// New creates an Engine. The clock defaults to time.Now.
func New(actor Actor, logger *zap.Logger) *Engine {
	return &Engine{actor: actor, logger: logger, clock: time.Now}
}

// SetClock overrides the time source. Must be called before Check (not
// concurrent).
func (e *Engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// Check runs one transition for the post and returns the new state to
// persist. prior is never mutated. On a platform call failure the state
// accumulated so far is returned along with the error; successfully
// performed actions keep their timestamps.
func (e *Engine) Check(ctx context.Context, r rule.Rule, post platform.PostSnapshot, prior store.PostState) (store.PostState, error) {
	now := e.clock()
	age := post.Age(now)

	next := prior
	next.PostID = post.ID

	// Requirement gone (flair changed, or never applied): close with no
	// side effects.
	if !NeedsComment(post, r) {
		next.RequiresComment = false
		next.MonitoringActive = false
		casesClosedTotal.WithLabelValues("not_applicable").Inc()
		return next, nil
	}
	next.RequiresComment = true

	// Satisfaction is monotonic; a satisfied post is never re-evaluated,
	// so a later comment deletion cannot reopen the case.
	if prior.CommentSatisfied {
		next.MonitoringActive = false
		return next, nil
	}

	verdict := Evaluate(post, r)
	if verdict.Satisfied {
		next.CommentSatisfied = true
		next.MonitoringActive = false
		casesClosedTotal.WithLabelValues("satisfied").Inc()
		e.logger.Debug("Routine requirement satisfied", zap.String("post_id", post.ID))
		return next, nil
	}

	// A partial match that is evading or too short gets flagged to the
	// moderators, but the case stays open: the author may still add a
	// qualifying comment.
	issues := verdict.Issues
	if issues.Comment != "" && (issues.Evading || issues.TooShort) {
		if err := e.actor.Report(ctx, post.ID, issues.Summarize()); err != nil {
			actionErrorsTotal.WithLabelValues("report_evasion").Inc()
			return next, fmt.Errorf("reporting evasion on post %s: %w", post.ID, err)
		}
		actionsTotal.WithLabelValues("report_evasion").Inc()
		e.logger.Info("Reported possible rule evasion",
			zap.String("post_id", post.ID),
			zap.Bool("evading", issues.Evading),
			zap.Bool("too_short", issues.TooShort),
		)
	}

	// Too old to bother: expire before any escalation timer fires.
	if age > r.IgnoreAfter {
		next.MonitoringActive = false
		casesClosedTotal.WithLabelValues("expired").Inc()
		e.logger.Debug("Post aged out of monitoring",
			zap.String("post_id", post.ID),
			zap.Duration("age", age),
		)
		return next, nil
	}

	return e.escalate(ctx, r, post, next, age, now)
}

// escalate runs the timed sub-decisions in order: remind, remove, report,
// then the fallback closure. Each is guarded by its own enable flag; they
// are independent, not mutually exclusive within one tick.
func (e *Engine) escalate(ctx context.Context, r rule.Rule, post platform.PostSnapshot, next store.PostState, age time.Duration, now time.Time) (store.PostState, error) {
	// Remind, unless removal is already due (a sticky on a post about to
	// be removed would only confuse the author).
	if r.RemindEnabled() && next.RemindedUTC == 0 && age > r.RemindAfter &&
		(!r.RemoveEnabled() || age < r.RemoveAfter) {
		text, err := r.ReminderTextFor(post.Flair)
		if err != nil {
			// Validation guarantees coverage; reaching this means the
			// rule changed mid-tick in a way validation should have caught.
			return next, fmt.Errorf("reminder for post %s: %w", post.ID, err)
		}
		if err := e.actor.ReplySticky(ctx, post.ID, text); err != nil {
			actionErrorsTotal.WithLabelValues("remind").Inc()
			return next, fmt.Errorf("sending reminder for post %s: %w", post.ID, err)
		}
		next.RemindedUTC = now.Unix()
		actionsTotal.WithLabelValues("remind").Inc()
		e.logger.Info("Sent routine reminder",
			zap.String("post_id", post.ID),
			zap.Duration("age", age),
		)
	}

	// Remove. When configured, removal waits for a reminder to have been
	// sent (possibly earlier in this same tick) so a reminder failure never
	// turns into a silent removal.
	if r.RemoveEnabled() && next.RemovedUTC == 0 && age > r.RemoveAfter {
		reminderGate := next.RemindedUTC > 0 || !r.RemindEnabled() || !r.RequireReminderBeforeRemove
		if reminderGate {
			if err := e.actor.Remove(ctx, post.ID); err != nil {
				actionErrorsTotal.WithLabelValues("remove").Inc()
				return next, fmt.Errorf("removing post %s: %w", post.ID, err)
			}
			next.RemovedUTC = now.Unix()
			actionsTotal.WithLabelValues("remove").Inc()
			e.logger.Info("Removed post without routine",
				zap.String("post_id", post.ID),
				zap.Duration("age", age),
			)
		}
	}

	// Report. Wording differs on whether the OP commented at all.
	if r.ReportEnabled() && next.ReportedUTC == 0 && age > r.ReportAfter {
		reason := reportNoComments
		if len(post.OPComments) > 0 {
			reason = reportNoKeyword
		}
		if err := e.actor.Report(ctx, post.ID, reason); err != nil {
			actionErrorsTotal.WithLabelValues("report").Inc()
			return next, fmt.Errorf("reporting post %s: %w", post.ID, err)
		}
		next.ReportedUTC = now.Unix()
		actionsTotal.WithLabelValues("report").Inc()
		e.logger.Info("Reported post without routine",
			zap.String("post_id", post.ID),
			zap.Duration("age", age),
		)
	}

	// Fallback closure: once the largest enabled timer has elapsed the post
	// must leave the watching state, reported at least once.
	if maxTimer, ok := r.MaxEscalationTimer(); ok && age > maxTimer {
		if next.ReportedUTC == 0 {
			if err := e.actor.Report(ctx, post.ID, reportFallback); err != nil {
				actionErrorsTotal.WithLabelValues("report_final").Inc()
				return next, fmt.Errorf("final report for post %s: %w", post.ID, err)
			}
			next.ReportedUTC = now.Unix()
			actionsTotal.WithLabelValues("report_final").Inc()
		}
		next.MonitoringActive = false
		casesClosedTotal.WithLabelValues("timers_elapsed").Inc()
		e.logger.Info("Escalation window elapsed, closing case",
			zap.String("post_id", post.ID),
			zap.Duration("age", age),
		)
	}

	return next, nil
}

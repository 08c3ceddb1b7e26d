// Package rule defines the moderation rule document: which posts need a
// qualifying comment, how to recognize one, and the escalation timers.
//
// # Contract
//
// The rule lives in a wiki page as YAML and is re-fetched and re-validated at
// the top of every checker tick, so moderators can edit it without a restart.
// Parse produces an immutable Rule value; validation failures carry every
// problem found, not just the first. The Loader keeps the last rule that
// validated and falls back to it when a reload fails.
package rule

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/kdoroschak/curlbot-v2/internal/textutil"
)

var (
	// ErrConfigMissing indicates the rule document could not be fetched or
	// is empty.
	ErrConfigMissing = errors.New("rule config missing")
	// ErrConfigInvalid indicates the rule document was fetched but failed
	// schema validation.
	ErrConfigInvalid = errors.New("rule config invalid")
)

const defaultIgnoreAfter = 8 * time.Hour

// Rule is the validated, immutable per-tick moderation rule. Durations of
// zero mean the corresponding escalation step is disabled.
type Rule struct {
	// FlairsRequiringComment is the set of flair labels whose media posts
	// need a qualifying comment. The empty string is the no-flair member.
	FlairsRequiringComment map[string]struct{}

	// Keywords and EvasionPhrases are stored normalized (lower-case, no
	// punctuation) so they can be matched directly against normalized text.
	Keywords       []string
	EvasionPhrases []string

	// MinCommentLength is the minimum normalized length for a qualifying
	// comment. Zero disables the length check.
	MinCommentLength int

	RemindAfter time.Duration
	RemoveAfter time.Duration
	ReportAfter time.Duration

	// IgnoreAfter closes any post older than this, regardless of the
	// escalation timers.
	IgnoreAfter time.Duration

	// ReminderTextByFlair maps flair to the sticky message sent as a
	// reminder. Covers every flair in FlairsRequiringComment whenever
	// reminding is enabled (checked by Validate).
	ReminderTextByFlair map[string]string

	MaxPostsPerScan int

	// RequireReminderBeforeRemove gates removal on a reminder having been
	// sent, whenever reminding is enabled.
	RequireReminderBeforeRemove bool
}

// RemindEnabled reports whether the reminder step is active.
func (r Rule) RemindEnabled() bool { return r.RemindAfter > 0 }

// RemoveEnabled reports whether the removal step is active.
func (r Rule) RemoveEnabled() bool { return r.RemoveAfter > 0 }

// ReportEnabled reports whether the report step is active.
func (r Rule) ReportEnabled() bool { return r.ReportAfter > 0 }

// MaxEscalationTimer returns the largest enabled escalation timer. ok is
// false when every step is disabled.
func (r Rule) MaxEscalationTimer() (d time.Duration, ok bool) {
	for _, t := range []time.Duration{r.RemindAfter, r.RemoveAfter, r.ReportAfter} {
		if t > 0 && t > d {
			d = t
			ok = true
		}
	}
	return d, ok
}

// RequiresFlair reports whether the given flair is in the set needing a
// qualifying comment. The empty string matches the no-flair member.
func (r Rule) RequiresFlair(flair string) bool {
	_, ok := r.FlairsRequiringComment[flair]
	return ok
}

// ReminderTextFor returns the sticky message for the flair. Validation
// guarantees presence for every monitored flair while reminding is enabled,
// so a miss here is a programming error and reported as one.
func (r Rule) ReminderTextFor(flair string) (string, error) {
	msg, ok := r.ReminderTextByFlair[flair]
	if !ok {
		return "", fmt.Errorf("no reminder message for flair %q", flair)
	}
	return msg, nil
}

// document is the YAML schema of the wiki page. Pointer fields distinguish
// absent keys from zero values; the timer keys accept null for "disabled".
type document struct {
	FlairToCheck            *[]*string         `yaml:"flair_to_check"`
	RemindAfterMins         *int               `yaml:"remind_after_mins"`
	RemoveAfterMins         *int               `yaml:"remove_after_mins"`
	ReportAfterMins         *int               `yaml:"report_after_mins"`
	Keywords                *[]string          `yaml:"keywords"`
	MinRoutineCharacters    *int               `yaml:"min_routine_characters"`
	SidesteppingPhrases     *[]string          `yaml:"sidestepping_phrases"`
	MaxPosts                *int               `yaml:"max_posts"`
	ReminderMessagesByFlair *map[string]string `yaml:"reminder_messages_by_flair"`

	IgnorePostsOverAgeHours *int  `yaml:"ignore_posts_over_age_hours"`
	RequireReminderToRemove *bool `yaml:"require_reminder_before_remove"`
}

// Parse decodes and validates a rule document. All validation problems are
// aggregated into the returned error, which wraps ErrConfigInvalid.
func Parse(raw []byte) (Rule, error) {
	if len(raw) == 0 {
		return Rule{}, fmt.Errorf("%w: empty document", ErrConfigMissing)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	// The timer keys accept null for "disabled", so required-key detection
	// has to look at the document's keys, not at decoded pointers.
	var keys map[string]any
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	var errs error
	for _, name := range []string{
		"flair_to_check",
		"remind_after_mins",
		"remove_after_mins",
		"report_after_mins",
		"keywords",
		"min_routine_characters",
		"sidestepping_phrases",
		"max_posts",
		"reminder_messages_by_flair",
	} {
		if _, ok := keys[name]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("missing required key %q", name))
		}
	}
	if errs != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrConfigInvalid, errs)
	}

	// Pointers below may still be nil when a required key is present but
	// null; those cases fall through to validate as empty/zero values.
	r := Rule{
		FlairsRequiringComment:      make(map[string]struct{}),
		Keywords:                    textutil.NormalizeAll(deref(doc.Keywords)),
		EvasionPhrases:              textutil.NormalizeAll(deref(doc.SidesteppingPhrases)),
		MinCommentLength:            derefInt(doc.MinRoutineCharacters),
		ReminderTextByFlair:         derefMap(doc.ReminderMessagesByFlair),
		MaxPostsPerScan:             derefInt(doc.MaxPosts),
		IgnoreAfter:                 defaultIgnoreAfter,
		RequireReminderBeforeRemove: true,
	}
	if doc.FlairToCheck != nil {
		for _, f := range *doc.FlairToCheck {
			if f == nil {
				r.FlairsRequiringComment[""] = struct{}{}
			} else {
				r.FlairsRequiringComment[*f] = struct{}{}
			}
		}
	}
	r.RemindAfter = minutes(doc.RemindAfterMins, &errs, "remind_after_mins")
	r.RemoveAfter = minutes(doc.RemoveAfterMins, &errs, "remove_after_mins")
	r.ReportAfter = minutes(doc.ReportAfterMins, &errs, "report_after_mins")
	if doc.IgnorePostsOverAgeHours != nil {
		if *doc.IgnorePostsOverAgeHours <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("ignore_posts_over_age_hours must be positive (got %d)", *doc.IgnorePostsOverAgeHours))
		} else {
			r.IgnoreAfter = time.Duration(*doc.IgnorePostsOverAgeHours) * time.Hour
		}
	}
	if doc.RequireReminderToRemove != nil {
		r.RequireReminderBeforeRemove = *doc.RequireReminderToRemove
	}

	errs = multierr.Append(errs, r.validate())
	if errs != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrConfigInvalid, errs)
	}
	return r, nil
}

// minutes converts an optional minute count to a duration; nil means disabled.
func minutes(v *int, errs *error, key string) time.Duration {
	if v == nil {
		return 0
	}
	if *v < 0 {
		*errs = multierr.Append(*errs, fmt.Errorf("%s must be non-negative (got %d)", key, *v))
		return 0
	}
	return time.Duration(*v) * time.Minute
}

func deref(v *[]string) []string {
	if v == nil {
		return nil
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefMap(v *map[string]string) map[string]string {
	if v == nil {
		return map[string]string{}
	}
	return *v
}

func (r Rule) validate() error {
	var errs error

	if len(r.FlairsRequiringComment) == 0 {
		errs = multierr.Append(errs, errors.New("flair_to_check must not be empty"))
	}
	if len(r.Keywords) == 0 {
		errs = multierr.Append(errs, errors.New("keywords must not be empty"))
	}
	if r.MinCommentLength < 0 {
		errs = multierr.Append(errs, fmt.Errorf("min_routine_characters must be non-negative (got %d)", r.MinCommentLength))
	}
	if r.MaxPostsPerScan <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("max_posts must be positive (got %d)", r.MaxPostsPerScan))
	}

	// Every monitored flair needs a reminder message while reminding is
	// enabled; a miss at send time would otherwise drop the sticky.
	if r.RemindEnabled() {
		for flair := range r.FlairsRequiringComment {
			if _, ok := r.ReminderTextByFlair[flair]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("reminder_messages_by_flair missing entry for flair %q", flair))
			}
		}
	}
	return errs
}

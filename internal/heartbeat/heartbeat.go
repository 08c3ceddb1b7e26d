// Package heartbeat keeps a "bot last online" indicator updated by editing a
// designated post on the bot's own profile. Moderators check the post to see
// whether the bot is still running.
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ProfileEditor is the slice of the platform client the heartbeat needs.
type ProfileEditor interface {
	EditProfilePost(ctx context.Context, postID, body string) error
}

// Action rewrites the profile post with a fresh timestamp on every run.
type Action struct {
	editor ProfileEditor
	postID string
	logger *zap.Logger
	clock  func() time.Time
}

// New creates the heartbeat action for the given profile post.
func New(editor ProfileEditor, postID string, logger *zap.Logger) *Action {
	return &Action{editor: editor, postID: postID, logger: logger, clock: time.Now}
}

// SetClock overrides the time source. Must be called before Run (not
// concurrent).
func (a *Action) SetClock(clock func() time.Time) {
	a.clock = clock
}

// Run updates the sign-of-life post. Failures are returned for logging but
// are never worth stopping the process over.
func (a *Action) Run(ctx context.Context) error {
	timestamp := a.clock().UTC().Format("2006-01-02 15:04")
	body := fmt.Sprintf("Bot last online: %s (UTC).\n\nUpdates ~hourly.", timestamp)

	if err := a.editor.EditProfilePost(ctx, a.postID, body); err != nil {
		return fmt.Errorf("updating sign-of-life post %s: %w", a.postID, err)
	}
	a.logger.Debug("Sent sign of life", zap.String("post_id", a.postID))
	return nil
}

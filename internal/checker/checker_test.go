package checker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kdoroschak/curlbot-v2/internal/engine"
	"github.com/kdoroschak/curlbot-v2/internal/platform"
	"github.com/kdoroschak/curlbot-v2/internal/rule"
	"github.com/kdoroschak/curlbot-v2/internal/store"
)

const wikiDoc = `
flair_to_check: ["help"]
remind_after_mins: 10
remove_after_mins: 60
report_after_mins: null
keywords: ["routine"]
min_routine_characters: 0
sidestepping_phrases: ["no routine"]
max_posts: 100
reminder_messages_by_flair:
  help: "Please add your routine."
`

type fakeClient struct {
	posts   []platform.PostSnapshot
	listErr error
	wiki    string
	wikiErr error

	stickies []string
	reports  []string
	removals []string
	replyErr error
}

func (f *fakeClient) ListNewPosts(ctx context.Context, limit int) ([]platform.PostSnapshot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.posts) {
		return f.posts[:limit], nil
	}
	return f.posts, nil
}

func (f *fakeClient) ReplySticky(ctx context.Context, postID, text string) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	f.stickies = append(f.stickies, postID)
	return nil
}

func (f *fakeClient) Report(ctx context.Context, postID, reason string) error {
	f.reports = append(f.reports, postID)
	return nil
}

func (f *fakeClient) Remove(ctx context.Context, postID string) error {
	f.removals = append(f.removals, postID)
	return nil
}

func (f *fakeClient) WikiPage(ctx context.Context, page string) (string, error) {
	return f.wiki, f.wikiErr
}

func (f *fakeClient) EditProfilePost(ctx context.Context, postID, body string) error {
	return nil
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestChecker(t *testing.T, client *fakeClient) (*Checker, *store.Store) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "curlbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st, err := store.New(db)
	require.NoError(t, err)

	eng := engine.New(client, zap.NewNop())
	eng.SetClock(func() time.Time { return testNow })

	loader := rule.NewLoader(client, "routine_checker_config", zap.NewNop())
	return New(client, loader, st, eng, zap.NewNop()), st
}

func mediaPost(id, flair string, age time.Duration, comments ...string) platform.PostSnapshot {
	return platform.PostSnapshot{
		ID:         id,
		URL:        fmt.Sprintf("https://i.redd.it/%s.jpg", id),
		Flair:      flair,
		Content:    platform.ContentMedia,
		CreatedAt:  testNow.Add(-age),
		OPComments: comments,
	}
}

func TestRunTickRemindsAndPersists(t *testing.T) {
	client := &fakeClient{
		wiki: wikiDoc,
		posts: []platform.PostSnapshot{
			mediaPost("due", "help", 15*time.Minute),
			mediaPost("fresh", "help", 2*time.Minute),
			mediaPost("offtopic", "other", 15*time.Minute),
		},
	}
	c, st := newTestChecker(t, client)

	require.NoError(t, c.RunTick(context.Background()))

	assert.Equal(t, []string{"due"}, client.stickies)

	due, err := st.GetOrCreate(context.Background(), "due", "", 0)
	require.NoError(t, err)
	assert.Positive(t, due.RemindedUTC)
	assert.True(t, due.MonitoringActive)

	fresh, err := st.GetOrCreate(context.Background(), "fresh", "", 0)
	require.NoError(t, err)
	assert.Zero(t, fresh.RemindedUTC)
	assert.True(t, fresh.MonitoringActive)

	off, err := st.GetOrCreate(context.Background(), "offtopic", "", 0)
	require.NoError(t, err)
	assert.False(t, off.MonitoringActive)
	assert.False(t, off.RequiresComment)
}

func TestRunTickSkipsClosedCases(t *testing.T) {
	client := &fakeClient{
		wiki: wikiDoc,
		posts: []platform.PostSnapshot{
			mediaPost("done", "help", 15*time.Minute, "here is my routine"),
		},
	}
	c, _ := newTestChecker(t, client)

	// First tick closes the case as satisfied.
	require.NoError(t, c.RunTick(context.Background()))
	assert.Empty(t, client.stickies)

	// Second tick must not touch the post again, even if the qualifying
	// comment disappears from the snapshot.
	client.posts[0].OPComments = nil
	require.NoError(t, c.RunTick(context.Background()))
	assert.Empty(t, client.stickies)
	assert.Empty(t, client.reports)
}

func TestRunTickConfigFallback(t *testing.T) {
	client := &fakeClient{
		wiki:  wikiDoc,
		posts: []platform.PostSnapshot{mediaPost("due", "help", 15*time.Minute)},
	}
	c, _ := newTestChecker(t, client)

	require.NoError(t, c.RunTick(context.Background()))

	// The wiki page breaks; the tick keeps running on the last good rule.
	client.wiki = "keywords: [broken"
	client.posts = append(client.posts, mediaPost("due2", "help", 15*time.Minute))
	require.NoError(t, c.RunTick(context.Background()))
	assert.Contains(t, client.stickies, "due2")
}

func TestRunTickNoUsableConfig(t *testing.T) {
	client := &fakeClient{wikiErr: errors.New("page missing")}
	c, _ := newTestChecker(t, client)

	err := c.RunTick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, rule.ErrConfigMissing)
}

func TestRunTickListingFailure(t *testing.T) {
	client := &fakeClient{wiki: wikiDoc, listErr: fmt.Errorf("%w: exhausted retries", platform.ErrTransient)}
	c, _ := newTestChecker(t, client)

	err := c.RunTick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, platform.ErrTransient)
}

func TestRunTickIsolatesSideEffectFailures(t *testing.T) {
	client := &fakeClient{
		wiki:     wikiDoc,
		replyErr: errors.New("api down"),
		posts: []platform.PostSnapshot{
			mediaPost("first", "help", 15*time.Minute),
			mediaPost("second", "other", 15*time.Minute),
		},
	}
	c, st := newTestChecker(t, client)

	// The failed reminder ends the first post's processing but not the tick.
	require.NoError(t, c.RunTick(context.Background()))

	first, err := st.GetOrCreate(context.Background(), "first", "", 0)
	require.NoError(t, err)
	assert.Zero(t, first.RemindedUTC)
	assert.True(t, first.MonitoringActive, "will retry next tick")

	second, err := st.GetOrCreate(context.Background(), "second", "", 0)
	require.NoError(t, err)
	assert.False(t, second.MonitoringActive, "second post was still processed")
}

func TestRunTickCorruptionAborts(t *testing.T) {
	client := &fakeClient{
		wiki:  wikiDoc,
		posts: []platform.PostSnapshot{mediaPost("dup", "help", 15*time.Minute)},
	}

	db, err := store.Open(filepath.Join(t.TempDir(), "curlbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := store.New(db)
	require.NoError(t, err)

	// Two rows for the same id, planted out-of-band.
	for i := 0; i < 2; i++ {
		_, err = db.Exec(`INSERT INTO post_history (post_id, created_utc) VALUES ('dup', 1)`)
		require.NoError(t, err)
	}

	eng := engine.New(client, zap.NewNop())
	eng.SetClock(func() time.Time { return testNow })
	loader := rule.NewLoader(client, "routine_checker_config", zap.NewNop())
	c := New(client, loader, st, eng, zap.NewNop())

	err = c.RunTick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCorrupt)
	assert.Empty(t, client.stickies, "no side effects after corruption")
}

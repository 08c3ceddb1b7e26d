package heartbeat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEditor struct {
	postID string
	body   string
	err    error
}

func (f *fakeEditor) EditProfilePost(ctx context.Context, postID, body string) error {
	if f.err != nil {
		return f.err
	}
	f.postID = postID
	f.body = body
	return nil
}

func TestRunWritesTimestamp(t *testing.T) {
	editor := &fakeEditor{}
	a := New(editor, "17olmb2", zap.NewNop())
	a.SetClock(func() time.Time {
		return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	})

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "17olmb2", editor.postID)
	assert.Contains(t, editor.body, "Bot last online: 2024-05-01 09:30 (UTC).")
}

func TestRunPropagatesEditorError(t *testing.T) {
	editor := &fakeEditor{err: errors.New("api down")}
	a := New(editor, "17olmb2", zap.NewNop())

	err := a.Run(context.Background())
	assert.Error(t, err)
}

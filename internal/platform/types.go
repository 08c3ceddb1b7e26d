package platform

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrTransient marks a platform failure that is safe to retry, such as a
// network fault or a rate-limit response while listing posts.
var ErrTransient = errors.New("transient platform error")

// ContentType categorizes a post's primary content.
type ContentType string

const (
	ContentMedia ContentType = "media" // image, gallery, or hosted video
	ContentLink  ContentType = "link"  // external link submission
	ContentText  ContentType = "text"  // self post
)

// PostSnapshot is the transient view of a post fetched fresh each tick.
// Nothing here is cached between ticks; flair in particular is mutable.
type PostSnapshot struct {
	ID        string
	Title     string
	URL       string
	Flair     string // empty = no flair
	Content   ContentType
	Body      string
	CreatedAt time.Time
	// OPComments holds the text of every comment the post's author made on
	// their own post, in thread order.
	OPComments []string
}

// Age returns the elapsed time since the post was created.
func (p PostSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// Client is the platform surface the checker consumes.
type Client interface {
	// ListNewPosts returns up to limit of the newest posts, newest first.
	// Implementations retry transient failures internally up to their
	// attempt budget before returning an error wrapping ErrTransient.
	ListNewPosts(ctx context.Context, limit int) ([]PostSnapshot, error)

	// ReplySticky posts a comment on the given post and pins it as a
	// moderator-distinguished sticky.
	ReplySticky(ctx context.Context, postID, text string) error

	// Report files a moderator report against the post.
	Report(ctx context.Context, postID, reason string) error

	// Remove removes the post from the community feed.
	Remove(ctx context.Context, postID string) error

	// WikiPage returns the raw markdown/YAML content of a wiki page.
	WikiPage(ctx context.Context, page string) (string, error)

	// EditProfilePost rewrites the body of a post on the bot's own profile.
	EditProfilePost(ctx context.Context, postID, body string) error
}

var mediaHosts = []string{"imgur", "v.redd.it", "gallery"}

// ClassifyContent derives the primary content type from the submission URL.
// Post bodies are never inspected for embedded links; a self post is text
// regardless of what its body contains.
func ClassifyContent(url string, isSelf bool) ContentType {
	if isSelf {
		return ContentText
	}
	ext := url[strings.LastIndex(url, ".")+1:]
	switch strings.ToLower(ext) {
	case "jpg", "jpeg", "png", "gif", "mp4":
		return ContentMedia
	}
	for _, host := range mediaHosts {
		if strings.Contains(url, host) {
			return ContentMedia
		}
	}
	return ContentLink
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kdoroschak/curlbot-v2/internal/platform"
	"github.com/kdoroschak/curlbot-v2/internal/rule"
)

func testRule() rule.Rule {
	return rule.Rule{
		FlairsRequiringComment: map[string]struct{}{"help": {}, "": {}},
		Keywords:               []string{"routine", "air dry"},
		EvasionPhrases:         []string{"dont have a routine", "no routine"},
		MinCommentLength:       0,
		RemindAfter:            10 * time.Minute,
		RemoveAfter:            60 * time.Minute,
		IgnoreAfter:            8 * time.Hour,
		ReminderTextByFlair: map[string]string{
			"help": "Please add your routine as a comment.",
			"":     "Please add your routine as a comment.",
		},
		MaxPostsPerScan:             100,
		RequireReminderBeforeRemove: true,
	}
}

func mediaPost(flair string, body string, comments ...string) platform.PostSnapshot {
	return platform.PostSnapshot{
		ID:         "post1",
		Flair:      flair,
		Content:    platform.ContentMedia,
		Body:       body,
		OPComments: comments,
	}
}

func TestNeedsComment(t *testing.T) {
	r := testRule()

	assert.True(t, NeedsComment(mediaPost("help", ""), r))
	assert.True(t, NeedsComment(mediaPost("", ""), r), "no flair is a monitored member")
	assert.False(t, NeedsComment(mediaPost("other", ""), r))

	text := mediaPost("help", "")
	text.Content = platform.ContentText
	assert.False(t, NeedsComment(text, r), "text posts are not checked")

	link := mediaPost("help", "")
	link.Content = platform.ContentLink
	assert.False(t, NeedsComment(link, r), "body links are not inspected")
}

func TestEvaluateShortCircuit(t *testing.T) {
	r := testRule()
	post := mediaPost("help", "no mention", "my routine: shampoo daily", "don't have a routine")

	v := Evaluate(post, r)
	assert.True(t, v.Satisfied, "second candidate qualifies; later ones are ignored")
}

func TestEvaluateBodyCheckedFirst(t *testing.T) {
	r := testRule()
	post := mediaPost("help", "my routine is in the title picture, air dry mostly")

	v := Evaluate(post, r)
	assert.True(t, v.Satisfied, "post body alone can satisfy the requirement")
}

func TestEvaluateNoKeywordAnywhere(t *testing.T) {
	r := testRule()
	post := mediaPost("help", "look at this", "thanks!", "it was humid")

	v := Evaluate(post, r)
	assert.False(t, v.Satisfied)
	assert.Equal(t, Issues{}, v.Issues, "candidates without keywords are not tracked")
}

func TestEvaluateEvasion(t *testing.T) {
	r := testRule()
	post := mediaPost("help", "", "i don't have a routine sorry")

	v := Evaluate(post, r)
	assert.False(t, v.Satisfied)
	assert.True(t, v.Issues.Evading)
	assert.False(t, v.Issues.TooShort)
	assert.NotEmpty(t, v.Issues.Comment)
}

func TestEvaluateTooShort(t *testing.T) {
	r := testRule()
	r.MinCommentLength = 40
	post := mediaPost("help", "", "routine: shampoo")

	v := Evaluate(post, r)
	assert.False(t, v.Satisfied)
	assert.True(t, v.Issues.TooShort)
	assert.False(t, v.Issues.Evading)
}

func TestEvaluateZeroMinLengthDisablesCheck(t *testing.T) {
	r := testRule()
	r.MinCommentLength = 0
	post := mediaPost("help", "", "routine")

	v := Evaluate(post, r)
	assert.True(t, v.Satisfied)
}

func TestEvaluateKeepsBestPartialMatch(t *testing.T) {
	r := testRule()
	r.MinCommentLength = 100

	// First partial match has two problems, the second only one; the
	// verdict should carry the second.
	post := mediaPost("help", "",
		"short no routine here",       // evading + too short
		"routine but still too short", // too short only
	)
	v := Evaluate(post, r)
	assert.False(t, v.Satisfied)
	assert.False(t, v.Issues.Evading)
	assert.True(t, v.Issues.TooShort)
	assert.Contains(t, v.Issues.Comment, "still too short")
}

func TestEvaluateTieKeepsFirstSeen(t *testing.T) {
	r := testRule()
	r.MinCommentLength = 100

	post := mediaPost("help", "",
		"routine number one is not long enough",
		"routine number two is not long enough",
	)
	v := Evaluate(post, r)
	assert.False(t, v.Satisfied)
	assert.Contains(t, v.Issues.Comment, "number one")
}

func TestEvaluateMatchesNormalizedKeyword(t *testing.T) {
	r := testRule()
	post := mediaPost("help", "", "My ROUTINE: condition, then air-dry.")

	v := Evaluate(post, r)
	assert.True(t, v.Satisfied, "matching happens on normalized text")
}

package engine

import (
	"unicode/utf8"

	"github.com/kdoroschak/curlbot-v2/internal/platform"
	"github.com/kdoroschak/curlbot-v2/internal/rule"
	"github.com/kdoroschak/curlbot-v2/internal/textutil"
)

// NeedsComment reports whether the post's flair and content type put it
// under the qualifying-comment requirement. Evaluated from the live snapshot
// every tick — never cached — because flair can change after posting.
func NeedsComment(post platform.PostSnapshot, r rule.Rule) bool {
	return r.RequiresFlair(post.Flair) && post.Content == platform.ContentMedia
}

// Evaluate checks the post body and the OP's comments, in that order,
// against the rule. The first candidate with a keyword, enough length and no
// evasion phrase satisfies the requirement outright. Otherwise the verdict
// carries the best partial match: candidates without any keyword are not
// tracked at all.
func Evaluate(post platform.PostSnapshot, r rule.Rule) Verdict {
	candidates := make([]string, 0, len(post.OPComments)+1)
	candidates = append(candidates, textutil.Normalize(post.Body))
	for _, c := range post.OPComments {
		candidates = append(candidates, textutil.Normalize(c))
	}

	var best Issues
	for _, text := range candidates {
		hasKeyword := textutil.ContainsAny(text, r.Keywords)
		longEnough := r.MinCommentLength == 0 || utf8.RuneCountInString(text) >= r.MinCommentLength
		evading := textutil.ContainsAny(text, r.EvasionPhrases)

		if hasKeyword && longEnough && !evading {
			return Verdict{Satisfied: true}
		}
		if hasKeyword {
			issues := Issues{Evading: evading, TooShort: !longEnough, Comment: text}
			if issues.isBetterThan(best) {
				best = issues
			}
		}
	}
	return Verdict{Satisfied: false, Issues: best}
}

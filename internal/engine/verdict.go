package engine

// Issues records why the closest-matching candidate text fell short of the
// requirement. The zero value is the "no comment at all" sentinel: no
// candidate ever contained a keyword.
type Issues struct {
	// Evading is true when the candidate contains an evasion phrase
	// (the author appears to be declining to comply).
	Evading bool
	// TooShort is true when the candidate is under the minimum length.
	TooShort bool
	// Comment is the normalized text of the candidate that came closest.
	// Empty means no candidate had a keyword at all.
	Comment string
}

// Verdict is the result of evaluating one post's text against the rule.
type Verdict struct {
	Satisfied bool
	Issues    Issues
}

// isBetterThan reports whether i beats other as the issue set worth keeping.
// A recorded comment beats no comment unconditionally; otherwise fewer true
// flags wins and ties are kept first-seen (i does not beat other).
func (i Issues) isBetterThan(other Issues) bool {
	if i.Comment != "" && other.Comment == "" {
		return true
	}
	if other.Comment != "" && i.Comment == "" {
		return false
	}
	return i.flagCount() < other.flagCount()
}

func (i Issues) flagCount() int {
	n := 0
	if i.Evading {
		n++
	}
	if i.TooShort {
		n++
	}
	return n
}

// Summarize renders the moderator-facing description of the issues, used as
// the report reason when the author appears to be evading the requirement.
func (i Issues) Summarize() string {
	switch {
	case i.Comment == "":
		return "Missing routine; no comments from OP at all."
	case i.Evading && i.TooShort:
		return "OP may be saying they have no routine & all comments are too short."
	case i.Evading:
		return "OP may be saying they have no routine. Please check!"
	default:
		return "OP's routine comment is too short. Please check!"
	}
}

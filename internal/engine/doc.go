// Package engine implements the routine-checker rule logic: deciding whether
// a post needs a qualifying comment, whether it has one, and which escalation
// action (reminder, report, removal) is due.
//
// # Contract
//
// The Engine, once per post per tick:
//  1. Re-evaluates the requirement from the live snapshot (flair is mutable)
//  2. Short-circuits posts whose prior state is already satisfied — satisfaction
//     is monotonic and never re-checked
//  3. Evaluates the post's text; a fully-qualifying candidate closes the case,
//     a partial match with evasion or length issues files an evasion report
//     while monitoring continues
//  4. Expires posts older than the ignore cutoff before any escalation timer
//     is considered
//  5. Runs the escalation steps in order — remind, remove, report, then the
//     fallback closure on the largest enabled timer
//
// Check never mutates the prior state; it returns a new PostState derived
// from it, which makes every call a function of (rule, snapshot, prior
// state, now) plus the side effects it performed. Timestamps are stamped
// only after the corresponding platform call succeeded.
//
// # Failure semantics
//
// A failed platform call ends processing for that post only. Check returns
// the state accumulated so far together with the error, so the caller can
// persist the actions that did land and move on to the next post.
package engine

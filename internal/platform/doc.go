// Package platform defines the contract between the checker and the social
// platform hosting the community.
//
// # Contract
//
// A Client implementation:
//  1. Lists the newest posts in the community, newest first, with each
//     snapshot carrying the post body and the OP's comments in thread order
//  2. Performs the moderation side effects: sticky reply, report, remove
//  3. Serves the wiki page hosting the moderation rule document
//  4. Edits the bot's own profile post (heartbeat)
//
// # Error semantics
//
// Listing failures that are worth retrying (network faults, 5xx, rate-limit
// responses) are reported as ErrTransient so callers can apply their retry
// budget. Side-effect failures are terminal for the call; the checker decides
// how far they propagate.
//
// # Flair encoding
//
// A post without a flair is represented by the empty string. Rule documents
// use null (or "") for the same member, so the empty string is a valid,
// matchable flair value everywhere in this codebase.
package platform

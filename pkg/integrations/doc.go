// Package integrations executes queries against the GitHub API.
//
// # Overview
//
// [Executor] is the single path by which reposcout talks to GitHub. It
// accepts a [Request], consults the injected cache under the request's
// identity, and otherwise performs the call under two policies:
//
//   - Transport failures (timeouts, connection errors) are retried with
//     exponential backoff, five attempts by default, one second doubling to
//     at most ten seconds.
//   - A 403 or 429 response reporting zero remaining requests sleeps until
//     the reset time announced in X-RateLimit-Reset plus a ten second
//     margin, then starts over. The number of waits and their total
//     duration are bounded; past the bound the call fails with
//     errors.QuotaExhaustedError.
//
// A 401 fails immediately with errors.AuthError. Any other non-200 status
// fails with errors.UpstreamError. Successful payloads are cached together
// with the time they were stored and stay fresh for five minutes.
//
// # Shapes
//
// The GitHub-specific query shapes (GraphQL search, REST search plus per
// repository commit lookups) live in the [github] subpackage.
//
// [github]: github.com/matzehuels/reposcout/pkg/integrations/github
package integrations

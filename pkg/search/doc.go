// Package search turns a query description into a filtered, ordered list of
// GitHub repositories.
//
// # Pipeline
//
// A [Searcher] validates a [Descriptor], asks its [Source] for raw
// [Candidate] values and passes them through [Filter]:
//
//  1. candidates whose last commit could not be resolved are dropped
//  2. candidates below MinStars are dropped
//  3. candidates above MaxStars are dropped
//  4. candidates whose last commit is older than the recency window are
//     dropped (years*365 days, else months*30 days; the cutoff is inclusive)
//  5. the survivors are ordered and truncated to NumResults
//
// Filter is pure: the current time is a parameter, so the same candidates
// and the same time always produce the same result.
//
// # Policies
//
// Ordering and the years/months precedence are policies on [Criteria]:
// [OrderUpstream] keeps the order GitHub returned (the GraphQL service
// behaviour); [OrderStarsDesc] sorts by stars, highest first (the
// interactive CLI behaviour). [YearsFirst] is the default precedence.
package search

// Package constraint holds the observed evidence for a position estimate:
// an immutable, ordered list of pairwise distance measurements between
// named points.
//
// # Overview
//
// A [Constraint] says "point From was measured Distance units away from
// point To". A [Set] is built once with [New], which validates every entry,
// and is read-only afterwards. Duplicate entries are allowed; they simply
// weigh that edge more heavily during optimization.
//
// The set also answers the structural questions the optimizer needs before
// it starts:
//
//   - [Set.Points] enumerates unique point ids in first-encountered order
//   - [Degrees] counts how many entries mention each point
//   - [SelectHub] picks the highest-degree point as the anchor
//
// # Validation
//
// [New] rejects self-loops, negative or non-finite distances and empty ids
// with an INVALID_INPUT error from [github.com/matzehuels/pointfit/pkg/errors].
// The message names the offending entry index and ids.
//
// # Concurrency
//
// A Set is immutable after construction and safe for concurrent readers.
package constraint

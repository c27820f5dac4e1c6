// Package checkpoint persists the state of a position estimate so it can be
// reported on or resumed later.
//
// A checkpoint is an opaque blob:
//
//	"PFCK" | version (1 byte) | zstd(JSON state)
//
// The JSON body carries the ordered point coordinates, both error
// histories, the duplication flag, the step size and round counter, the
// serialized random generator and enough metadata (run id, constraint
// hash, options) to check that a resume targets the same input. Floats are
// written in shortest round-trip form, so a decode returns bit-identical
// values.
//
// Any blob that cannot be decoded yields an error coded
// CORRUPT_CHECKPOINT.
//
// [Store] keeps checkpoints in a [cache.Cache] keyed by run id;
// [WriteFile] and [ReadFile] handle single-file checkpoints for the CLI.
package checkpoint

package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// The API server uses it to keep its runs apart from CLI runs that share
// the same backend.
//
// Example usage:
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ResultKey generates a prefixed key for estimate results.
func (k *ScopedKeyer) ResultKey(setHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(setHash, opts)
}

// CheckpointKey generates a prefixed key for checkpoints.
func (k *ScopedKeyer) CheckpointKey(runID string) string {
	return k.prefix + k.inner.CheckpointKey(runID)
}

// RunKey generates a prefixed key for run metadata.
func (k *ScopedKeyer) RunKey(runID string) string {
	return k.prefix + k.inner.RunKey(runID)
}

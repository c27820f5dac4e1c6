package cache

// ResultKeyOpts holds every option that changes the outcome of an estimate.
// Two runs with equal constraint hashes and equal opts produce identical
// results, so they may share a cache entry.
type ResultKeyOpts struct {
	StepSize     float64 `json:"step_size"`
	MaxRounds    int     `json:"max_rounds"`
	Tolerance    float64 `json:"tolerance"`
	ShrinkFactor float64 `json:"shrink_factor"`
	InitRange    float64 `json:"init_range"`
	Seed         uint64  `json:"seed"`
	Duplicated   bool    `json:"duplicated"`
}

// Keyer generates cache keys.
type Keyer interface {
	// ResultKey identifies a finished estimate of a constraint set.
	ResultKey(setHash string, opts ResultKeyOpts) string
	// CheckpointKey identifies the checkpoint of a run.
	CheckpointKey(runID string) string
	// RunKey identifies the metadata record of a run.
	RunKey(runID string) string
}

// DefaultKeyer is the keyer used by the CLI and the API server.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey returns "result:<sha256(setHash, opts)>".
func (DefaultKeyer) ResultKey(setHash string, opts ResultKeyOpts) string {
	return hashKey("result", setHash, opts)
}

// CheckpointKey returns "checkpoint:<runID>".
func (DefaultKeyer) CheckpointKey(runID string) string {
	return "checkpoint:" + runID
}

// RunKey returns "run:<runID>".
func (DefaultKeyer) RunKey(runID string) string {
	return "run:" + runID
}

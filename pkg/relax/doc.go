// Package relax estimates 3-D point positions from pairwise distance
// measurements by stochastic, edge-local relaxation.
//
// # Algorithm
//
// The [Optimizer] starts from a random placement and runs rounds. Each round
// visits every constraint once, in a fresh random order, and moves one
// endpoint along the line joining the pair so that the estimated distance
// approaches the measured one:
//
//   - too far apart: the moving endpoint steps toward the other by
//     StepSize times the connecting vector
//   - too close: it steps away by the same amount
//   - exact match or coincident endpoints: nothing moves
//
// Which endpoint moves is a coin flip, except that the hub (the point with
// the most measurements, see [constraint.SelectHub]) never moves. Pinning
// one point removes the translational freedom of the layout, so successive
// rounds' errors are comparable.
//
// Updates are applied immediately and later edges in the same round see
// them. Rounds must therefore run strictly in sequence and are never
// parallelized internally.
//
// After each round the cumulative error (see [Evaluate]) is compared with
// the previous accepted round. A worse round is rolled back and the step
// size shrinks by ShrinkFactor; a round that is not worse is kept. The run
// ends as [StatusConverged] once the step size drops below Tolerance, or as
// [StatusExhausted] after MaxRounds rounds.
//
// # Reproducibility
//
// All randomness (initial placement, visiting order, coin flips) comes from
// one PCG generator seeded from [Options.Seed]. The generator state is part
// of [State], so a run that is checkpointed and resumed produces exactly the
// same result as an uninterrupted run.
//
// # Cancellation
//
// [Optimizer.Run] checks its context only between rounds, never in the
// middle of one, so a canceled run always leaves the store at the last
// accepted, evaluated state.
package relax

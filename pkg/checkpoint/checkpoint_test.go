package checkpoint

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/relax"
)

func testSet() *constraint.Set {
	return constraint.MustNew([]constraint.Constraint{
		{From: "A", To: "B", Distance: 3},
		{From: "B", To: "C", Distance: 4},
		{From: "A", To: "C", Distance: 5},
		{From: "C", To: "D", Distance: 2.5},
	})
}

func testOptions() relax.Options {
	opts := relax.DefaultOptions()
	opts.Logger = log.New(io.Discard)
	return opts
}

// runState runs an optimizer for rounds rounds and checkpoints it.
func runState(t *testing.T, set *constraint.Set, rounds int) (State, *relax.Result) {
	t.Helper()
	opts := testOptions()
	opts.MaxRounds = rounds
	opt, err := relax.New(set, opts)
	require.NoError(t, err)
	res, err := opt.Run(context.Background())
	require.NoError(t, err)
	st, err := opt.State()
	require.NoError(t, err)
	return New(set, opt.Hub(), opts, st, false), res
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	set := testSet()
	st, _ := runState(t, set, 30)
	st.Points[0].X = 0.1 + 0.2 // not representable as a short decimal
	st.CumulativeErrors[0] = math.Nextafter(1, 2)

	data, err := Encode(st)
	require.NoError(t, err)
	assert.Equal(t, []byte("PFCK"), data[:4])
	assert.Equal(t, Version, data[4])

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, st.RunID, got.RunID)
	assert.True(t, st.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, st.ConstraintHash, got.ConstraintHash)
	assert.Equal(t, st.Constraints, got.Constraints)
	assert.Equal(t, st.Hub, got.Hub)
	assert.Equal(t, st.Status, got.Status)
	assert.Equal(t, st.Round, got.Round)
	assert.Equal(t, st.RNG, got.RNG)
	require.Len(t, got.Points, len(st.Points))
	for i := range st.Points {
		assert.Equal(t, st.Points[i], got.Points[i], "point %d", i)
	}
	for i := range st.CumulativeErrors {
		assert.Equal(t, math.Float64bits(st.CumulativeErrors[i]), math.Float64bits(got.CumulativeErrors[i]))
		assert.Equal(t, math.Float64bits(st.MaxErrors[i]), math.Float64bits(got.MaxErrors[i]))
	}
	assert.Equal(t, math.Float64bits(st.StepSize), math.Float64bits(got.StepSize))
	assert.Equal(t, st.Options.Seed, got.Options.Seed)
	assert.True(t, got.Matches(set))
}

func TestDecodeCorrupt(t *testing.T) {
	st, _ := runState(t, testSet(), 5)
	good, err := Encode(st)
	require.NoError(t, err)

	wrongVersion := append([]byte(nil), good...)
	wrongVersion[4] = Version + 1

	badBody := append([]byte("PFCK"), Version)
	badBody = append(badBody, []byte("not zstd at all")...)

	notJSON := append([]byte("PFCK"), Version)
	notJSON = encoder.EncodeAll([]byte("{broken"), notJSON)

	noHistory := append([]byte("PFCK"), Version)
	noHistory = encoder.EncodeAll([]byte(`{"run_id":"abc","points":[{"id":"A"}]}`), noHistory)

	tests := map[string][]byte{
		"empty":         nil,
		"short":         []byte("PFC"),
		"bad magic":     append([]byte("XXXX"), good[4:]...),
		"wrong version": wrongVersion,
		"truncated":     good[:len(good)/2],
		"bad body":      badBody,
		"bad json":      notJSON,
		"no history":    noHistory,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeCorruptCheckpoint), "got %v", err)
		})
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	st, _ := runState(t, testSet(), 5)

	dup := st
	dup.Points = append(append([]Point(nil), st.Points...), st.Points[0])
	_, err := Encode(dup)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)

	uneven := st
	uneven.MaxErrors = nil
	_, err = Encode(uneven)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
}

func TestResumeFromCheckpointMatchesFullRun(t *testing.T) {
	set := testSet()

	full, err := relax.New(set, func() relax.Options { o := testOptions(); o.MaxRounds = 80; return o }())
	require.NoError(t, err)
	want, err := full.Run(context.Background())
	require.NoError(t, err)

	st, _ := runState(t, set, 25)
	data, err := Encode(st)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.True(t, decoded.Matches(set))

	rs, err := decoded.RelaxState()
	require.NoError(t, err)
	opts := decoded.Options
	opts.MaxRounds = 80
	opts.Logger = log.New(io.Discard)
	resumed, err := relax.New(set, opts)
	require.NoError(t, err)
	require.NoError(t, resumed.Resume(rs))
	got, err := resumed.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want.Final, got.Final)
	assert.Equal(t, want.Rounds, got.Rounds)
	assert.Equal(t, want.Store.Coords(), got.Store.Coords())
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemoryCache(), nil)
	st, _ := runState(t, testSet(), 10)

	id, err := s.Save(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, st.RunID, id)

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, st.Points, got.Points)
	assert.Equal(t, st.Final(), got.Final())

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Load(ctx, id)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "got %v", err)

	_, err = s.Load(ctx, "../etc/passwd")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
}

func TestStoreAssignsRunID(t *testing.T) {
	s := NewStore(cache.NewMemoryCache(), cache.NewScopedKeyer(nil, "test:"))
	st, _ := runState(t, testSet(), 3)
	st.RunID = ""

	id, err := s.Save(context.Background(), st)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.Load(context.Background(), id)
	require.NoError(t, err)
}

func TestStoreCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	require.NoError(t, c.Set(ctx, cache.NewDefaultKeyer().CheckpointKey("bad"), []byte("junk"), 0))

	_, err := NewStore(c, nil).Load(ctx, "bad")
	assert.True(t, errors.Is(err, errors.ErrCodeCorruptCheckpoint), "got %v", err)
}

func TestWriteReadFile(t *testing.T) {
	st, _ := runState(t, testSet(), 10)
	st.Duplicated = true
	path := filepath.Join(t.TempDir(), "run.pfck")

	require.NoError(t, WriteFile(path, st))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.True(t, got.Duplicated)
	assert.Equal(t, st.Points, got.Points)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.pfck"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)

	require.NoError(t, os.WriteFile(path, []byte("PFCK"), 0644))
	_, err = ReadFile(path)
	assert.True(t, errors.Is(err, errors.ErrCodeCorruptCheckpoint), "got %v", err)
}

func TestNewRecordsDuplicatedCount(t *testing.T) {
	set := testSet().Duplicate()
	st, _ := runState(t, set, 3)
	assert.Equal(t, 8, st.Constraints)
	assert.False(t, st.Matches(testSet()))
}

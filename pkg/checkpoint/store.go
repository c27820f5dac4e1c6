package checkpoint

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/errors"
)

// Store keeps checkpoints in a cache backend, keyed by run id.
type Store struct {
	cache cache.Cache
	keyer cache.Keyer
}

// NewStore creates a checkpoint store. A nil keyer uses the default key
// layout.
func NewStore(c cache.Cache, keyer cache.Keyer) *Store {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Store{cache: c, keyer: keyer}
}

// Save encodes s and stores it under its run id, assigning one if empty.
// It returns the run id.
func (s *Store) Save(ctx context.Context, st State) (string, error) {
	if st.RunID == "" {
		st.RunID = uuid.NewString()
	}
	data, err := Encode(st)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, s.keyer.CheckpointKey(st.RunID), data, cache.TTLCheckpoint); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "save checkpoint %s", st.RunID)
	}
	return st.RunID, nil
}

// Load fetches and decodes the checkpoint of run id. A missing checkpoint
// is NOT_FOUND.
func (s *Store) Load(ctx context.Context, id string) (State, error) {
	if err := errors.ValidateRunID(id); err != nil {
		return State{}, err
	}
	data, ok, err := s.cache.Get(ctx, s.keyer.CheckpointKey(id))
	if err != nil {
		return State{}, errors.Wrap(errors.ErrCodeStorage, err, "load checkpoint %s", id)
	}
	if !ok {
		return State{}, errors.New(errors.ErrCodeNotFound, "no checkpoint for run %s", id)
	}
	return Decode(data)
}

// Delete removes the checkpoint of run id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateRunID(id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, s.keyer.CheckpointKey(id)); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete checkpoint %s", id)
	}
	return nil
}

// WriteFile encodes s into path.
func WriteFile(path string, s State) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write checkpoint %s", path)
	}
	return nil
}

// ReadFile decodes the checkpoint at path.
func ReadFile(path string) (State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "checkpoint %s", path)
	}
	if err != nil {
		return State{}, errors.Wrap(errors.ErrCodeStorage, err, "read checkpoint %s", path)
	}
	return Decode(data)
}

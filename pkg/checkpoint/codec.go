package checkpoint

import (
	"bytes"
	"encoding/json"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/pointfit/pkg/errors"
)

// Version is the current checkpoint format version.
const Version byte = 1

// maxDecodedSize bounds decompression of untrusted blobs.
const maxDecodedSize = 512 << 20

var magic = [4]byte{'P', 'F', 'C', 'K'}

const headerLen = len(magic) + 1

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
)

// Encode serializes s into a checkpoint blob.
func Encode(s State) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal checkpoint")
	}

	out := make([]byte, 0, headerLen+len(body)/2)
	out = append(out, magic[:]...)
	out = append(out, Version)
	return encoder.EncodeAll(body, out), nil
}

// Decode parses a checkpoint blob. Every failure is coded
// CORRUPT_CHECKPOINT.
func Decode(data []byte) (State, error) {
	if len(data) < headerLen {
		return State{}, errors.New(errors.ErrCodeCorruptCheckpoint, "checkpoint is %d bytes, shorter than its header", len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return State{}, errors.New(errors.ErrCodeCorruptCheckpoint, "not a checkpoint: bad magic %q", data[:len(magic)])
	}
	if v := data[len(magic)]; v != Version {
		return State{}, errors.New(errors.ErrCodeCorruptCheckpoint, "unsupported checkpoint version %d (want %d)", v, Version)
	}

	body, err := decoder.DecodeAll(data[headerLen:], nil)
	if err != nil {
		return State{}, errors.Wrap(errors.ErrCodeCorruptCheckpoint, err, "decompress checkpoint")
	}

	var s State
	if err := json.Unmarshal(body, &s); err != nil {
		return State{}, errors.Wrap(errors.ErrCodeCorruptCheckpoint, err, "parse checkpoint")
	}
	if err := s.Validate(); err != nil {
		return State{}, errors.Wrap(errors.ErrCodeCorruptCheckpoint, err, "invalid checkpoint")
	}
	return s, nil
}

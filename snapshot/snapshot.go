// Package snapshot persists a single opaque state value per file. Every write
// goes to a temporary file which is synced and then renamed over the target,
// so a reader only ever sees the previous value or the new one.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"
)

// Version is the envelope format written by Save.
const Version = 1

var (
	ErrNotFound = errors.New("snapshot: not found")
	ErrCorrupt  = errors.New("snapshot: corrupt")
)

// Envelope is the on-disk record. State and Result hold msgpack-encoded
// values; Done marks the terminal snapshot, after which only Result matters.
type Envelope struct {
	Version  int
	RunID    string
	Seq      int
	Done     bool
	State    []byte
	Result   []byte
	Checksum uint64
}

func (e *Envelope) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, e)
}

func (e *Envelope) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, e)
}

func (e *Envelope) sum() uint64 {
	buf := make([]byte, 0, len(e.State)+len(e.Result)+32)
	buf = binary.AppendUvarint(buf, uint64(e.Seq))
	if e.Done {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.AppendUvarint(buf, uint64(len(e.State)))
	buf = append(buf, e.State...)
	buf = append(buf, e.Result...)
	buf = append(buf, e.RunID...)
	return farm.Hash64(buf)
}

// Save stamps the envelope with the current version and checksum and commits
// it to path.
func Save(path string, e *Envelope) error {
	e.Version = Version
	e.Checksum = e.sum()
	var buf bytes.Buffer
	if err := e.Serialize(&buf); err != nil {
		return fmt.Errorf("snapshot: encoding %s: %w", path, err)
	}
	if err := WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("snapshot: writing %s: %w", path, err)
	}
	return nil
}

// Load reads and verifies the envelope at path.
func Load(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	e := &Envelope{}
	if err := e.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if e.Version != Version {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrCorrupt, path, e.Version)
	}
	if e.Checksum != e.sum() {
		return nil, fmt.Errorf("%w: %s: checksum mismatch", ErrCorrupt, path)
	}
	return e, nil
}

// Exists reports whether a snapshot file is present at path. It does not
// validate the contents.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Encode serializes a state or result value for storage in an Envelope.
func Encode[T any](v T) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode is the inverse of Encode. An empty payload yields the zero value.
func Decode[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

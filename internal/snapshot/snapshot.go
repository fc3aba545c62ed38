// Package snapshot stores hub snapshots as a JSON header line followed by
// the serialized hub, zstd compressed.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/talgya/world-api/internal/environment"
)

// Version is the current envelope version.
const Version = 1

// ErrVersion is returned for envelopes written by an unknown version.
var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version int       `json:"version"`
	ID      string    `json:"id"`
	SavedAt time.Time `json:"saved_at"`
	Frame   uint64    `json:"frame"`
}

// Envelope is a header plus the hub document produced by Hub.Serialize.
type Envelope struct {
	Header Header          `json:"header"`
	State  json.RawMessage `json:"state"`
}

// Capture serializes h into a new envelope.
func Capture(h *environment.Hub, frame uint64) (Envelope, error) {
	state, err := h.Serialize()
	if err != nil {
		return Envelope{}, fmt.Errorf("capture snapshot: %w", err)
	}
	return Envelope{
		Header: Header{
			Version: Version,
			ID:      uuid.NewString(),
			SavedAt: time.Now().UTC(),
			Frame:   frame,
		},
		State: state,
	}, nil
}

// Restore validates env and overwrites h with it.
func Restore(h *environment.Hub, env Envelope) error {
	if err := Validate(env); err != nil {
		return err
	}
	if err := h.Deserialize(env.State); err != nil {
		return fmt.Errorf("restore snapshot %s: %w", env.Header.ID, err)
	}
	return nil
}

var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// Encode compresses env into a byte slice.
func Encode(env Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, env); err != nil {
		return nil, err
	}
	enc, err := encoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// Decode reverses Encode.
func Decode(data []byte) (Envelope, error) {
	dec, err := decoder()
	if err != nil {
		return Envelope{}, fmt.Errorf("zstd decoder: %w", err)
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Envelope{}, fmt.Errorf("decompress snapshot: %w", err)
	}
	return read(bufio.NewReader(bytes.NewReader(raw)))
}

// WriteFile writes env to path, creating parent directories.
func WriteFile(path string, env Envelope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	if err := write(bw, env); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish snapshot %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads an envelope written by WriteFile.
func ReadFile(path string) (Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return Envelope{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Envelope{}, err
	}
	defer dec.Close()

	return read(bufio.NewReaderSize(dec, 64*1024))
}

// ReadHeader reads only the header line of a snapshot file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return Header{}, fmt.Errorf("read snapshot header: %w", err)
	}
	return parseHeader(line)
}

func write(w io.Writer, env Envelope) error {
	hb, err := json.Marshal(env.Header)
	if err != nil {
		return fmt.Errorf("encode snapshot header: %w", err)
	}
	if _, err := w.Write(append(hb, '\n')); err != nil {
		return err
	}
	if _, err := w.Write(env.State); err != nil {
		return err
	}
	return nil
}

func read(br *bufio.Reader) (Envelope, error) {
	line, err := br.ReadBytes('\n')
	if err != nil {
		return Envelope{}, fmt.Errorf("read snapshot header: %w", err)
	}
	h, err := parseHeader(line)
	if err != nil {
		return Envelope{}, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return Envelope{}, fmt.Errorf("read snapshot body: %w", err)
	}
	return Envelope{Header: h, State: body}, nil
}

func parseHeader(line []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Header{}, fmt.Errorf("decode snapshot header: %w", err)
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return h, nil
}

package ml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

// Task selects how a model's leaves or outputs are interpreted.
type Task string

const (
	TaskClassification Task = "classification"
	TaskRegression     Task = "regression"
)

func (t Task) orDefault() Task {
	if t == "" {
		return TaskClassification
	}
	return t
}

// DecodeArtifact unmarshals a JSON model.bin into v. Artifacts may be zstd
// compressed; the frame magic decides.
func DecodeArtifact(raw []byte, v any) error {
	if len(raw) == 0 {
		return errors.New("artifact is empty")
	}
	payload, err := decompress(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// EncodeArtifact is the inverse of DecodeArtifact.
func EncodeArtifact(v any, compress bool) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !compress {
		return payload, nil
	}
	return CompressArtifact(payload)
}

// CompressArtifact zstd-compresses raw. Already compressed input is returned as is.
func CompressArtifact(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, zstdMagic) {
		return raw, nil
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func decompress(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, zstdMagic) {
		return raw, nil
	}
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	if decoderErr != nil {
		return nil, decoderErr
	}
	out, err := decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress artifact: %w", err)
	}
	return out, nil
}

package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/vk/gridflow/internal/model"
)

// payloadFromFile describes a local file as a content-addressed payload.
func payloadFromFile(path string) (model.DataPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.DataPayload{}, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return model.DataPayload{}, fmt.Errorf("hash input %s: %w", path, err)
	}
	return model.DataPayload{
		Path:       path,
		Size:       uint64(n),
		SHA256Hash: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

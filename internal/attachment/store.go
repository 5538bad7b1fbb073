package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists attachment blobs and returns the path they were stored
// under. Every call yields a unique path.
type Store interface {
	Save(data []byte, filename string) (string, error)
}

// Dir stores attachments as files under a single directory.
type Dir struct {
	root string
}

// NewDir creates the directory if needed and returns a Dir store.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("attachment dir %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Save writes data under a name made unique by a random prefix, keeping the
// original filename visible. Returns the stored path.
func (d *Dir) Save(data []byte, filename string) (string, error) {
	name := uuid.NewString() + "__" + filepath.Base(filename)
	path := filepath.Join(d.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return path, nil
}

// DecodeBase64 decodes an inline-encoded blob, stripping the header of a
// data URI ("data:image/png;base64,....") if present.
func DecodeBase64(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		i := strings.IndexByte(payload, ',')
		if i < 0 {
			return nil, errors.New("data URI without payload")
		}
		payload = payload[i+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}

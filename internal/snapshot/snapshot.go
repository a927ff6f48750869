// Package snapshot persists the last raw listing response for audit.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// DefaultFile is the snapshot path used when none is configured.
const DefaultFile = "raw_alerts.json"

// Writer overwrites a single snapshot file on every Save.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	if path == "" {
		path = DefaultFile
	}
	return &Writer{path: path}
}

// Save pretty-prints raw and replaces the snapshot file with it.
func (w *Writer) Save(raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	buf.WriteByte('\n')

	if err := os.WriteFile(w.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

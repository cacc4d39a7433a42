// Package singbox renders the sing-box configuration document.
package singbox

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alexallen1/sing-box-suger/internal/core/domain"
)

// FileWriter writes config.json under the work directory. It performs no
// validation of the rendered document; the container process rejects a
// malformed config at startup.
type FileWriter struct {
	path string
}

// NewFileWriter creates a writer targeting the given host-side path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Write marshals cfg and replaces any existing document unconditionally.
// The file ends up owner-only: it embeds the secret.
func (w *FileWriter) Write(cfg domain.ServerConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(w.path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// WriteFile keeps the old mode when the file already existed.
	if err := os.Chmod(w.path, 0600); err != nil {
		return fmt.Errorf("restrict config permissions: %w", err)
	}
	return nil
}

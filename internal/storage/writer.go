package storage

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Writer persists payloads to the local filesystem. Every write goes to a
// temp file in the destination directory and is renamed into place, so a
// destination is either the old content or the new one.
type Writer struct {
	logger logster.Logger
}

func NewWriter(logger logster.Logger) *Writer {
	return &Writer{logger: logger.WithField("Layer", "Storage")}
}

// Write stores item and returns the path actually written. File resources are
// decoded from their base64 content, other kinds are stored as indented JSON
// with a .json extension unless the destination already ends in one.
func (w *Writer) Write(item models.WriteItem) (string, error) {
	var (
		data []byte
		dest = item.Dest
		err  error
	)

	switch item.Kind {
	case models.KindFile:
		data, err = decodeFile(item.Payload)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", dest, err)
		}
	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, item.Payload, "", "  "); err != nil {
			return "", fmt.Errorf("format %s: %w", dest, err)
		}
		buf.WriteByte('\n')
		data = buf.Bytes()
		if !strings.EqualFold(filepath.Ext(dest), ".json") {
			dest += ".json"
		}
	}

	if err := writeFileAtomic(dest, data, filePerm); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	w.logger.Debugf("wrote %d bytes to %s", len(data), dest)
	return dest, nil
}

// WriteData stores an already serialized blob, e.g. the cache record set.
func (w *Writer) WriteData(data []byte, location string) error {
	if err := writeFileAtomic(location, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}

// decodeFile extracts the raw bytes of a contents API object. Payloads that
// are not base64 encoded file objects are stored verbatim.
func decodeFile(payload json.RawMessage) ([]byte, error) {
	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(payload, &file); err != nil || file.Encoding != "base64" {
		return payload, nil
	}

	clean := strings.NewReplacer("\n", "", "\r", "").Replace(file.Content)
	return base64.StdEncoding.DecodeString(clean)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

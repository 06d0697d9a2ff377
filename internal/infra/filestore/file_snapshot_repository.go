// internal/infra/filestore/file_snapshot_repository.go
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"parties_snapshot_fetcher/internal/domain/snapshot"

	"github.com/sirupsen/logrus"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
	indent   = "  "
)

// FileSnapshotRepository writes one YYYY-MM-DD.json file per snapshot into dir.
type FileSnapshotRepository struct {
	dir    string
	logger *logrus.Entry
}

func NewFileSnapshotRepository(dir string, logger *logrus.Entry) *FileSnapshotRepository {
	return &FileSnapshotRepository{dir: dir, logger: logger}
}

// FileName returns the file name a snapshot for date is stored under.
func FileName(date time.Time) string {
	return date.Format(snapshot.DateLayout) + ".json"
}

// Save creates the output directory if needed and overwrites any existing file for the date.
func (r *FileSnapshotRepository) Save(_ context.Context, s *snapshot.Snapshot) error {
	if err := os.MkdirAll(r.dir, dirPerm); err != nil {
		return fmt.Errorf("create output directory %s: %w", r.dir, err)
	}

	data, err := Format(s.Payload)
	if err != nil {
		return fmt.Errorf("format snapshot %s: %w", s.DateString(), err)
	}

	filename := FileName(s.Date)
	if err := os.WriteFile(filepath.Join(r.dir, filename), data, filePerm); err != nil {
		return fmt.Errorf("write snapshot %s: %w", filename, err)
	}

	r.logger.Infof("Saved: %s", filename)
	return nil
}

// Format re-emits a JSON document indented by two spaces. Key order and number literals
// are kept as received; escaped strings are written with non-ASCII and HTML characters literal.
func Format(payload json.RawMessage) ([]byte, error) {
	compact, err := reencode(payload)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", indent); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// container is an open object or array while walking tokens.
type container struct {
	object bool
	count  int // Tokens written inside; in objects keys and values alternate
}

// reencode walks the document token by token and writes it back compactly,
// decoding every string and encoding it again without escaping.
func reencode(payload []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var out bytes.Buffer
	strEnc := json.NewEncoder(&out)
	strEnc.SetEscapeHTML(false)

	var stack []container
	done := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if done {
			return nil, errors.New("unexpected data after top-level value")
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			out.WriteByte(byte(d))
			done = len(stack) == 0
			continue
		}

		if n := len(stack); n > 0 {
			top := &stack[n-1]
			switch {
			case top.object && top.count%2 == 1:
				out.WriteByte(':')
			case top.count > 0:
				out.WriteByte(',')
			}
			top.count++
		}

		switch v := tok.(type) {
		case json.Delim:
			out.WriteByte(byte(v))
			stack = append(stack, container{object: v == '{'})
			continue
		case string:
			if err := strEnc.Encode(v); err != nil {
				return nil, err
			}
			out.Truncate(out.Len() - 1) // Encode appends a newline
		case json.Number:
			out.WriteString(v.String())
		case bool:
			if v {
				out.WriteString("true")
			} else {
				out.WriteString("false")
			}
		case nil:
			out.WriteString("null")
		}
		done = len(stack) == 0
	}

	if !done {
		return nil, io.ErrUnexpectedEOF
	}
	return out.Bytes(), nil
}

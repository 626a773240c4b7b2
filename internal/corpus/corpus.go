// Package corpus reads documents for batch scans from JSONL files and writes
// scan results back as JSONL.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/nertrie/pkg/nertrie/scan"
)

// Doc is one document of a corpus. HTML, when set, is scanned as markup and
// takes precedence over Text.
type Doc struct {
	ID          string    `json:"id"`
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Text        string    `json:"text,omitempty"`
	HTML        string    `json:"html,omitempty"`
}

// Key returns the document id, falling back to the URL.
func (d Doc) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.URL
}

const maxLine = 64 << 20

// LoadFromJSONL loads documents from a JSONL file. Malformed lines are
// skipped with a warning.
func LoadFromJSONL(path string) ([]Doc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path)
}

// Read loads documents from JSONL in r; name is used in messages. Documents
// without id or url get their line number as id.
func Read(r io.Reader, name string) ([]Doc, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var docs []Doc
	lineNumber := 0
	for sc.Scan() {
		lineNumber++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var doc Doc
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			slog.Warn("skipping malformed JSON", "line", lineNumber, "source", name, "error", err)
			continue
		}
		if doc.Key() == "" {
			doc.ID = strconv.Itoa(lineNumber)
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no valid documents found in %s", name)
	}
	return docs, nil
}

// Entity is one match in a Result.
type Entity struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Text  string   `json:"text"`
	IDs   []string `json:"ids,omitempty"`
}

// Entities converts spans of text into entities carrying the covered text.
func Entities(text string, spans []scan.Span) []Entity {
	runes := []rune(text)
	out := make([]Entity, len(spans))
	for i, sp := range spans {
		out[i] = Entity{Start: sp.Start, End: sp.End, Text: string(runes[sp.Start:sp.End]), IDs: sp.IDs}
	}
	return out
}

// Result is the outcome of scanning one document.
type Result struct {
	DocID    string   `json:"doc_id"`
	Entities []Entity `json:"entities"`
	Markup   string   `json:"markup,omitempty"`
}

// Writer writes results as JSONL. It is not safe for concurrent use.
type Writer struct {
	enc *json.Encoder
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// Write writes one result line.
func (w *Writer) Write(r Result) error {
	if r.Entities == nil {
		r.Entities = []Entity{}
	}
	return w.enc.Encode(r)
}

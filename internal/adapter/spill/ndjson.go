package spill

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

// line is the overflow-log row format: one JSON object per record, enough
// to replay the batch manually once storage recovers.
type line struct {
	PriceUpdate bool          `json:"price_update,omitempty"`
	Record      entity.Record `json:"record"`
}

// NDJSONWriter persists failed batches as newline-delimited JSON files under
// a local directory, one file per spilled batch.
type NDJSONWriter struct {
	dir string
}

func NewNDJSONWriter(dir string) *NDJSONWriter {
	return &NDJSONWriter{dir: dir}
}

// Spill writes the batch to <dir>/spill-<source>-<timestamp>.ndjson and
// returns the path.
func (w *NDJSONWriter) Spill(_ context.Context, batch []repository.CommitRecord) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating spill dir: %w", err)
	}

	source := "unknown"
	if len(batch) > 0 {
		source = batch[0].Record.Raw.Source
	}
	path := filepath.Join(w.dir, fmt.Sprintf("spill-%s-%d.ndjson", source, time.Now().UnixNano()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating spill file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for _, cr := range batch {
		if err := enc.Encode(line{PriceUpdate: cr.PriceUpdate, Record: *cr.Record}); err != nil {
			return "", fmt.Errorf("encoding spill record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flushing spill file: %w", err)
	}
	return path, f.Sync()
}

// Read loads a spill file back into commit records, for recovery tooling
// and tests.
func Read(path string) ([]repository.CommitRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []repository.CommitRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			return nil, fmt.Errorf("parsing spill line: %w", err)
		}
		rec := l.Record
		out = append(out, repository.CommitRecord{Record: &rec, PriceUpdate: l.PriceUpdate})
	}
	return out, sc.Err()
}

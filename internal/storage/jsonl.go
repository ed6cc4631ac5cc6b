package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"liquidityAMM/internal/model"
)

// JsonlStorage appends event records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Name implements events.Sink.
func (s *JsonlStorage) Name() string { return "jsonl:" + s.path }

// Put appends the batch records as JSON lines. Pool states are not written;
// they can be rebuilt from the records.
func (s *JsonlStorage) Put(_ context.Context, batch model.EventBatch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range batch.Records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal event record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write event record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return file.Sync()
}

// ReadEventRecords reads every record from a JSONL file written by Put.
// Blank lines are skipped.
func ReadEventRecords(path string) ([]model.EventRecordRaw, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer file.Close()

	var records []model.EventRecordRaw
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec model.EventRecordRaw
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse events line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events file: %w", err)
	}
	return records, nil
}

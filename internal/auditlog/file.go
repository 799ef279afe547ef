package auditlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	logx "hookrelay/pkg/logx"
)

const dayLayout = "2006-01-02"

// fileStore partitions records into one <dir>/YYYY-MM-DD.jsonl per UTC day.
//
// Appends serialize on a mutex and keep the current day's file handle open,
// rotating when the day changes. Reads open day files on demand; they never
// touch the write handle.
type fileStore struct {
	dir string
	log logx.Logger

	mu     sync.Mutex
	day    string
	file   *os.File
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dataDir := strings.TrimSpace(cfg.DataDir)
	if dataDir == "" {
		return nil, errors.New("storage.data_dir is required for the file driver")
	}
	dir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir, log: log}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

func (s *fileStore) Append(ctx context.Context, r Record) error {
	_ = ctx
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	day := r.ReceivedAt.UTC().Format(dayLayout)
	if s.file == nil || day != s.day {
		if s.file != nil {
			_ = s.file.Close()
			s.file = nil
		}
		f, err := os.OpenFile(filepath.Join(s.dir, day+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		s.file = f
		s.day = day
	}

	return json.NewEncoder(s.file).Encode(r)
}

func (s *fileStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	days, err := s.dayFiles()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, limit)
	// Newest day first; within a day, reverse file order.
	for i := len(days) - 1; i >= 0 && len(out) < limit; i-- {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		recs, err := readDayFile(days[i])
		if err != nil {
			s.log.Warn("audit day file unreadable", logx.String("path", days[i]), logx.Err(err))
			continue
		}
		for j := len(recs) - 1; j >= 0 && len(out) < limit; j-- {
			out = append(out, recs[j])
		}
	}
	return out, nil
}

func (s *fileStore) Since(ctx context.Context, t time.Time, max int) ([]Record, error) {
	if max <= 0 {
		return nil, nil
	}
	t = t.UTC()
	fromDay := t.Format(dayLayout)

	days, err := s.dayFiles()
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, path := range days {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		day := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		if day < fromDay {
			continue
		}
		recs, err := readDayFile(path)
		if err != nil {
			s.log.Warn("audit day file unreadable", logx.String("path", path), logx.Err(err))
			continue
		}
		for _, r := range recs {
			if r.ReceivedAt.Before(t) {
				continue
			}
			out = append(out, r)
			if len(out) >= max {
				return out, nil
			}
		}
	}
	return out, nil
}

// dayFiles returns the day file paths sorted ascending (oldest first).
// Day names sort lexicographically in date order.
func (s *fileStore) dayFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func readDayFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			// Skip torn or foreign lines instead of failing the whole read.
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}

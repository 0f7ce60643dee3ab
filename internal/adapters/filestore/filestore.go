// Package filestore keeps small tables as CSV files under a data directory.
package filestore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Row maps a column header to its value.
type Row map[string]string

// Store reads and writes CSV and text files rooted at a directory.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used by GenerateID.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(s.dir, name), nil
}

// Read returns the rows of name. A missing or empty file yields no rows.
func (s *Store) Read(name string) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rows, err := s.read(name)
	return rows, err
}

// Columns returns the header of name, or nil when the file is missing or empty.
func (s *Store) Columns(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, _, err := s.read(name)
	return header, err
}

func (s *Store) read(name string) ([]string, []Row, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, []Row{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, []Row{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []Row{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// Write replaces name with rows. The header is columns when given, otherwise
// the first row's keys in sorted order. No rows writes an empty file.
func (s *Store) Write(name string, rows []Row, columns ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(name, columns, rows)
}

func (s *Store) write(name string, header []string, rows []Row) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if len(rows) > 0 {
		if len(header) == 0 {
			header = keys(rows[0])
		}
		w := csv.NewWriter(&buf)
		if err := w.Write(header); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		rec := make([]string, len(header))
		for _, row := range rows {
			for i, h := range header {
				rec[i] = row[h]
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
	}
	return s.writeFile(p, buf.Bytes())
}

func (s *Store) writeFile(p string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(p), err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(p), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(p), err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(p), err)
	}
	return nil
}

// Append adds row to the end of name, keeping the existing header.
func (s *Store) Append(name string, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, rows, err := s.read(name)
	if err != nil {
		return err
	}
	return s.write(name, mergeHeader(header, row), append(rows, row))
}

// Update merges updates into every row matching pred and returns how many changed.
func (s *Store) Update(name string, pred func(Row) bool, updates Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, rows, err := s.read(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, row := range rows {
		if !pred(row) {
			continue
		}
		for k, v := range updates {
			row[k] = v
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.write(name, mergeHeader(header, updates), rows)
}

// Delete drops every row matching pred and returns how many were removed.
func (s *Store) Delete(name string, pred func(Row) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, rows, err := s.read(name)
	if err != nil {
		return 0, err
	}
	kept := rows[:0]
	for _, row := range rows {
		if !pred(row) {
			kept = append(kept, row)
		}
	}
	n := len(rows) - len(kept)
	if n == 0 {
		return 0, nil
	}
	return n, s.write(name, header, kept)
}

// ReadText returns the content of name, or "" when it does not exist.
func (s *Store) ReadText(name string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// WriteText replaces name with content.
func (s *Store) WriteText(name, content string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(p, []byte(content))
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateID returns "<unix millis>-<9 base36 chars>".
func (s *Store) GenerateID() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(s.now().UnixMilli(), 10))
	b.WriteByte('-')
	for i := 0; i < 9; i++ {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}

func keys(row Row) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// mergeHeader appends columns from row that header lacks, in sorted order.
func mergeHeader(header []string, row Row) []string {
	if len(header) == 0 {
		return keys(row)
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	out := header
	for _, k := range keys(row) {
		if !have[k] {
			out = append(out, k)
		}
	}
	return out
}

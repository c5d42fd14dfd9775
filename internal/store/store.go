package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	yaml "go.yaml.in/yaml/v3"

	logx "senseibot/pkg/logx"
)

// Store persists one YAML document per catalog under a data directory.
//
// Loading is forgiving: a missing or unreadable file yields the zero value so
// the bot starts fresh instead of refusing to run. Saving is strict: callers
// must treat a save error as the failure of the whole mutating operation.
type Store struct {
	dir string
	log logx.Logger
}

func New(dir string, log logx.Logger) (*Store, error) {
	if dir == "" {
		dir = "data"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

// Load reads the named document into v. A missing file leaves v untouched
// and returns false. Read or parse failures are logged as warnings and also
// leave v untouched; they are never surfaced to the caller.
func (s *Store) Load(name string, v any) bool {
	path := s.path(name)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("catalog file not found; starting empty", logx.String("path", path))
			return false
		}
		s.log.Warn("catalog read failed; starting empty", logx.String("path", path), logx.Err(err))
		return false
	}
	if len(b) == 0 {
		return false
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		s.log.Warn("catalog parse failed; starting empty", logx.String("path", path), logx.Err(err))
		return false
	}
	return true
}

// Save serializes v as YAML and atomically replaces the named document via a
// temp file + rename, so a crash mid-write cannot corrupt the prior content.
func (s *Store) Save(name string, v any) error {
	path := s.path(name)
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

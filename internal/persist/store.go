package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/chatdeck/schema"
	"pkt.systems/pslog"
)

const stateFile = "tabs.json"

// Store persists the tab-set record to disk. Writes are atomic
// (tmp + rename) so readers never observe a torn record. The stored bytes
// are raw: normalization happens at the service layer on both load and save.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Path returns the location of the tab-set record.
func (s *Store) Path() string {
	return filepath.Join(s.dir, stateFile)
}

// Load reads the raw tab-set record. A missing record reports ok=false with
// no error; the caller treats that the same as a record that fails
// normalization.
func (s *Store) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("state load miss")
			}
			return nil, false, nil
		}
		if s.log != nil {
			s.log.Warn("state load failed", "err", err)
		}
		return nil, false, err
	}
	if s.log != nil {
		s.log.Debug("state load ok", "bytes", len(data))
	}
	return data, true, nil
}

// Save writes the tab set to disk.
func (s *Store) Save(set schema.TabSet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return s.saveFailed(err)
	}
	tmp, err := os.CreateTemp(s.dir, "tabs-*.json")
	if err != nil {
		return s.saveFailed(err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return s.saveFailed(err)
	}
	if s.log != nil {
		s.log.Trace("state save ok", "tabs", len(set.Tabs))
	}
	return nil
}

func (s *Store) saveFailed(err error) error {
	if s.log != nil {
		s.log.Warn("state save failed", "err", err)
	}
	return err
}

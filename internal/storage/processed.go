package storage

import (
	"fmt"
	"os"
	"sync"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/domain"
)

const stateFilePermissions = 0o644

// ProcessedStore is the durable record of every item ever announced or
// intentionally suppressed. It is keyed by the media server's rating key and
// guarantees no duplicate keys across the store's lifetime.
//
// The file on disk is plain JSON so operators can inspect it directly.
type ProcessedStore struct {
	path string

	mu       sync.RWMutex
	records  map[string]domain.ProcessedRecord
	showKeys map[string]struct{}
}

func NewProcessedStore(path string) *ProcessedStore {
	return &ProcessedStore{
		path:     path,
		records:  make(map[string]domain.ProcessedRecord),
		showKeys: make(map[string]struct{}),
	}
}

// Load reads the store from disk. Unreadable or corrupt data fails soft: the
// store starts empty and reset reports true so the caller can log the
// re-notification risk. A file that does not exist yet is a first run, not a
// reset, so it reports false. Load never returns an error that should stop
// startup.
func (s *ProcessedStore) Load() (reset bool) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.WithField("path", s.path).Info("no processed state file, starting empty")
		return false
	}
	if err != nil {
		log.WithFields(log.Fields{"path": s.path, "error": err}).
			Warn("reading processed state failed, starting empty (already-seen items may be re-announced)")
		return true
	}

	var records map[string]domain.ProcessedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.WithFields(log.Fields{"path": s.path, "error": err}).
			Warn("processed state file corrupt, starting empty (already-seen items may be re-announced)")
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.showKeys = make(map[string]struct{}, len(records))
	for _, record := range records {
		if record.ShowKey != "" {
			s.showKeys[record.ShowKey] = struct{}{}
		}
	}
	log.WithField("count", len(records)).Info("loaded processed state")
	return false
}

func (s *ProcessedStore) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok
}

// ShowSeen reports whether any episode of the show has ever been recorded.
func (s *ProcessedStore) ShowSeen(showKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.showKeys[showKey]
	return ok
}

// MarkProcessed adds a record. Marking an already-present key is a no-op, so
// a record is written at most once per key.
func (s *ProcessedStore) MarkProcessed(key string, record domain.ProcessedRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return
	}
	record.Key = key
	s.records[key] = record
	if record.ShowKey != "" {
		s.showKeys[record.ShowKey] = struct{}{}
	}
}

func (s *ProcessedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Save persists the whole store atomically: the new content is written to a
// temp file and renamed over the old one, so a crash mid-write leaves the
// previous state intact.
func (s *ProcessedStore) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshalling processed state: %w", err)
	}
	return writeAtomic(s.path, data)
}

// Reset clears every record and persists the empty store. Used only by the
// explicit administrative reset command.
func (s *ProcessedStore) Reset() error {
	s.mu.Lock()
	previous := len(s.records)
	s.records = make(map[string]domain.ProcessedRecord)
	s.showKeys = make(map[string]struct{})
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		return fmt.Errorf("persisting reset state: %w", err)
	}
	log.WithFields(log.Fields{"path": s.path, "cleared": previous}).
		Warn("processed state reset, all current library items will be treated as new")
	return nil
}

// Accessible reports whether the state file can be read, for health checks.
// A file that does not exist yet is fine.
func (s *ProcessedStore) Accessible() bool {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return true
	}
	_, err := os.ReadFile(s.path)
	return err == nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, stateFilePermissions); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

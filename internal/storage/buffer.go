package storage

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/domain"
)

// BufferFile persists pending show groups between restarts so buffered
// episodes are never silently lost. Same atomic-rename discipline and the
// same soft-fail load as the processed store.
type BufferFile struct {
	path string
}

func NewBufferFile(path string) *BufferFile {
	return &BufferFile{path: path}
}

// Load reads the pending groups from disk. Missing or corrupt data yields an
// empty buffer; startup is never blocked.
func (b *BufferFile) Load() map[string]*domain.PendingGroup {
	empty := make(map[string]*domain.PendingGroup)

	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return empty
	}
	if err != nil {
		log.WithFields(log.Fields{"path": b.path, "error": err}).
			Warn("reading pending buffer failed, starting with empty buffer")
		return empty
	}

	var groups map[string]*domain.PendingGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		log.WithFields(log.Fields{"path": b.path, "error": err}).
			Warn("pending buffer file corrupt, starting with empty buffer")
		return empty
	}
	if groups == nil {
		return empty
	}

	log.WithField("groups", len(groups)).Info("loaded pending episode buffer")
	return groups
}

func (b *BufferFile) Save(groups map[string]*domain.PendingGroup) error {
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling pending buffer: %w", err)
	}
	return writeAtomic(b.path, data)
}

// Accessible reports whether the buffer file can be read, for health checks.
// A file that does not exist yet is fine.
func (b *BufferFile) Accessible() bool {
	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		return true
	}
	_, err := os.ReadFile(b.path)
	return err == nil
}

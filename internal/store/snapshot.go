// Package store implements the persistence collaborators: a best-effort
// JSON snapshot store on disk and an optional Postgres mission archive.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"
	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/solivara/vigil/api/schemas"
)

const (
	defaultDirName = ".vigil"
	operatorFile   = "operator.json"
	memoriesFile   = "memories.json"
	missionsDir    = "missions"
)

// ResolveDataDir returns the configured data directory, or the default
// one under the user's home directory when unset.
func ResolveDataDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// Snapshot persists operator, mission, and memory records as JSON files
// under a data directory. All failures are reported to the caller, who
// treats them as non-fatal.
type Snapshot struct {
	dir string
	log *zap.Logger
}

// NewSnapshot creates the data directory tree if needed.
func NewSnapshot(dir string, logger *zap.Logger) (*Snapshot, error) {
	if err := os.MkdirAll(filepath.Join(dir, missionsDir), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Snapshot{dir: dir, log: logger.Named("store")}, nil
}

// Dir returns the resolved data directory.
func (s *Snapshot) Dir() string { return s.dir }

// LoadOperator reads the operator history record.
func (s *Snapshot) LoadOperator() (*schemas.OperatorProfile, error) {
	var profile schemas.OperatorProfile
	if err := s.read(filepath.Join(s.dir, operatorFile), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveOperator writes the operator history record.
func (s *Snapshot) SaveOperator(profile *schemas.OperatorProfile) error {
	return s.write(filepath.Join(s.dir, operatorFile), profile)
}

// SaveMission writes a finalized mission record under missions/<id>.json.
func (s *Snapshot) SaveMission(mission *schemas.Mission) error {
	name := filepath.Join(s.dir, missionsDir, mission.ID+".json")
	return s.write(name, mission)
}

// LoadMemories reads the special-memories map.
func (s *Snapshot) LoadMemories() (map[string]string, error) {
	memories := make(map[string]string)
	if err := s.read(filepath.Join(s.dir, memoriesFile), &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// SaveMemories writes the special-memories map.
func (s *Snapshot) SaveMemories(memories map[string]string) error {
	return s.write(filepath.Join(s.dir, memoriesFile), memories)
}

func (s *Snapshot) read(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (s *Snapshot) write(path string, in interface{}) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	// Write-then-rename keeps a crash from truncating the previous
	// snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	s.log.Debug("snapshot written", zap.String("path", path))
	return nil
}

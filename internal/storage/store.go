package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/xid"
	"github.com/san-kum/longsim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	turnsFile    = "turns.csv"
	profilesFile = "profiles.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes a stored run.
type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Turns      int                `json:"turns"`
	TurnsTaken int                `json:"turns_taken"`
	Particles  int                `json:"particles"`
	Solver     string             `json:"solver"`
	Loop       string             `json:"loop"`
	Induced    []string           `json:"induced,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
	StageTime  map[string]float64 `json:"stage_time"`
	Errors     []string           `json:"errors,omitempty"`
}

// Save writes metadata.json, turns.csv and, when profiles is not empty,
// profiles.csv into a new run directory and returns the run ID.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result, profiles []dynamo.Profile) (string, error) {
	runID := fmt.Sprintf("%s_%s", meta.Preset, xid.New().String())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.TurnsTaken = result.TurnsTaken
	meta.Metrics = result.Metrics
	meta.StageTime = result.StageTime
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, turnsFile), func(f *os.File) error {
		return WriteSnapshots(f, result.Snapshots)
	}); err != nil {
		return "", err
	}

	if len(profiles) > 0 {
		if err := writeFile(filepath.Join(runDir, profilesFile), func(f *os.File) error {
			return WriteProfiles(f, profiles)
		}); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSnapshots reads turns.csv of a run.
func (s *Store) LoadSnapshots(runID string) ([]dynamo.Snapshot, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, turnsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadSnapshots(file)
}

// LoadProfiles reads profiles.csv of a run. A run stored without profiles
// yields an empty slice.
func (s *Store) LoadProfiles(runID string) ([]dynamo.Profile, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, profilesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []dynamo.Profile{}, nil
		}
		return nil, err
	}
	defer file.Close()
	return ReadProfiles(file)
}

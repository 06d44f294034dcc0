package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/longsim/internal/dynamo"
)

// ExportData is the JSON document of one run.
type ExportData struct {
	Meta      RunMetadata        `json:"meta"`
	Turns     int                `json:"turns"`
	Snapshots []dynamo.Snapshot  `json:"snapshots"`
	Profiles  []dynamo.Profile   `json:"profiles,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// nanSafe replaces non-finite values, which JSON cannot encode, by zero.
func nanSafe(snaps []dynamo.Snapshot) []dynamo.Snapshot {
	out := make([]dynamo.Snapshot, len(snaps))
	for i, s := range snaps {
		for _, v := range []*float64{&s.BunchLength, &s.BunchPosition, &s.MeanDt, &s.SigmaDt, &s.MeanDE, &s.SigmaDE, &s.Emittance} {
			if !finite(*v) {
				*v = 0
			}
		}
		out[i] = s
	}
	return out
}

func ExportJSON(path string, meta RunMetadata, snaps []dynamo.Snapshot, profiles []dynamo.Profile) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSONTo(file, meta, snaps, profiles)
}

func ExportJSONTo(w io.Writer, meta RunMetadata, snaps []dynamo.Snapshot, profiles []dynamo.Profile) error {
	data := ExportData{
		Meta:      meta,
		Turns:     len(snaps),
		Snapshots: nanSafe(snaps),
		Profiles:  profiles,
		Metrics:   meta.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportRunJSON writes a stored run as JSON.
func (s *Store) ExportRunJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	snaps, err := s.LoadSnapshots(runID)
	if err != nil {
		return err
	}
	profiles, err := s.LoadProfiles(runID)
	if err != nil {
		return err
	}
	return ExportJSONTo(w, *meta, snaps, profiles)
}

// ExportRunCSV copies turns.csv of a stored run.
func (s *Store) ExportRunCSV(w io.Writer, runID string) error {
	snaps, err := s.LoadSnapshots(runID)
	if err != nil {
		return err
	}
	return WriteSnapshots(w, snaps)
}

package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/longsim/internal/dynamo"
)

var snapshotHeader = []string{
	"turn", "time", "mean_dt", "sigma_dt", "mean_de", "sigma_de", "emittance",
	"bunch_length", "bunch_position", "alive", "lost",
	"phi_beam", "dphi", "domega_rf", "omega_rf", "phi_rf",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteSnapshots writes one CSV row per snapshot.
func WriteSnapshots(out io.Writer, snaps []dynamo.Snapshot) error {
	w := csv.NewWriter(out)
	if err := w.Write(snapshotHeader); err != nil {
		return err
	}
	for _, s := range snaps {
		row := []string{
			strconv.Itoa(s.Turn),
			formatFloat(s.Time),
			formatFloat(s.MeanDt),
			formatFloat(s.SigmaDt),
			formatFloat(s.MeanDE),
			formatFloat(s.SigmaDE),
			formatFloat(s.Emittance),
			formatFloat(s.BunchLength),
			formatFloat(s.BunchPosition),
			strconv.Itoa(s.Alive),
			strconv.Itoa(s.Lost),
			formatFloat(s.PhiBeam),
			formatFloat(s.Dphi),
			formatFloat(s.DomegaRF),
			formatFloat(s.OmegaRF),
			formatFloat(s.PhiRF),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadSnapshots parses the output of WriteSnapshots.
func ReadSnapshots(in io.Reader) ([]dynamo.Snapshot, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(snapshotHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []dynamo.Snapshot{}, nil
	}

	snaps := make([]dynamo.Snapshot, 0, len(records)-1)
	for i, record := range records[1:] {
		var p parser
		s := dynamo.Snapshot{
			Turn:          p.int(record[0]),
			Time:          p.float(record[1]),
			MeanDt:        p.float(record[2]),
			SigmaDt:       p.float(record[3]),
			MeanDE:        p.float(record[4]),
			SigmaDE:       p.float(record[5]),
			Emittance:     p.float(record[6]),
			BunchLength:   p.float(record[7]),
			BunchPosition: p.float(record[8]),
			Alive:         p.int(record[9]),
			Lost:          p.int(record[10]),
			PhiBeam:       p.float(record[11]),
			Dphi:          p.float(record[12]),
			DomegaRF:      p.float(record[13]),
			OmegaRF:       p.float(record[14]),
			PhiRF:         p.float(record[15]),
		}
		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, p.err)
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

// WriteProfiles writes profiles in long format: one row per turn and bin.
func WriteProfiles(out io.Writer, profiles []dynamo.Profile) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"turn", "bin", "center", "count"}); err != nil {
		return err
	}
	for _, p := range profiles {
		turn := strconv.Itoa(p.Turn)
		for i := range p.Counts {
			if err := w.Write([]string{turn, strconv.Itoa(i), formatFloat(p.Centers[i]), formatFloat(p.Counts[i])}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// ReadProfiles parses the output of WriteProfiles.
func ReadProfiles(in io.Reader) ([]dynamo.Profile, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = 4

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	profiles := make([]dynamo.Profile, 0)
	for i, record := range records {
		if i == 0 {
			continue
		}
		var p parser
		turn := p.int(record[0])
		bin := p.int(record[1])
		center := p.float(record[2])
		count := p.float(record[3])
		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", i, p.err)
		}
		if bin == 0 {
			profiles = append(profiles, dynamo.Profile{Turn: turn})
		}
		if len(profiles) == 0 {
			return nil, fmt.Errorf("row %d: profile does not start at bin 0", i)
		}
		last := &profiles[len(profiles)-1]
		last.Centers = append(last.Centers, center)
		last.Counts = append(last.Counts, count)
	}
	return profiles, nil
}

type parser struct {
	err error
}

func (p *parser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) int(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

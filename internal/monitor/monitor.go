// Package monitor records per-turn bunch data and periodic slice profiles
// into an SQLite database.
package monitor

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"
	"github.com/san-kum/longsim/internal/dynamo"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// onExit registers a handler run by atexit.Exit.
var onExit = func(fn func()) { atexit.Register(fn) }

const (
	bunchTable   = "bunch"
	profileTable = "profile"
)

type bunchRecord struct {
	Run           string
	Turn          int
	Time          float64
	MeanDt        float64
	SigmaDt       float64
	MeanDE        float64
	SigmaDE       float64
	Emittance     float64
	BunchLength   float64
	BunchPosition float64
	Alive         int
	Lost          int
	PhiBeam       float64
	Dphi          float64
	DomegaRF      float64
}

type profileRecord struct {
	Run    string
	Turn   int
	Bin    int
	Center float64
	Count  float64
}

// Monitor is an observer buffering records and writing them in batches.
// Write errors are kept and returned by Flush and Close.
type Monitor struct {
	db        *sql.DB
	run       string
	file      string
	batchSize int
	bunch     []any
	profile   []any
	err       error
}

// New creates path.sqlite3, or a uniquely named database when path is empty.
// The file must not exist yet.
func New(path string) (*Monitor, error) {
	if path == "" {
		path = "longsim_monitor_" + xid.New().String()
	}
	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		db:        db,
		run:       xid.New().String(),
		file:      filename,
		batchSize: 10000,
	}
	for name, sample := range map[string]any{bunchTable: bunchRecord{}, profileTable: profileRecord{}} {
		if err := m.createTable(name, sample); err != nil {
			db.Close()
			return nil, err
		}
	}

	onExit(func() { m.Flush() })

	return m, nil
}

// File is the database filename.
func (m *Monitor) File() string { return m.file }

// Run is the ID stored in every row written by this monitor.
func (m *Monitor) Run() string { return m.run }

// DB exposes the connection for queries.
func (m *Monitor) DB() *sql.DB { return m.db }

func (m *Monitor) createTable(name string, sample any) error {
	fields := strings.Join(structs.Names(sample), ", \n\t")
	_, err := m.db.Exec(`CREATE TABLE ` + name + ` (` + "\n\t" + fields + "\n" + `);`)
	return err
}

func (m *Monitor) OnTurn(s dynamo.Snapshot) {
	m.bunch = append(m.bunch, bunchRecord{
		Run:           m.run,
		Turn:          s.Turn,
		Time:          s.Time,
		MeanDt:        s.MeanDt,
		SigmaDt:       s.SigmaDt,
		MeanDE:        s.MeanDE,
		SigmaDE:       s.SigmaDE,
		Emittance:     s.Emittance,
		BunchLength:   s.BunchLength,
		BunchPosition: s.BunchPosition,
		Alive:         s.Alive,
		Lost:          s.Lost,
		PhiBeam:       s.PhiBeam,
		Dphi:          s.Dphi,
		DomegaRF:      s.DomegaRF,
	})
	m.maybeFlush()
}

func (m *Monitor) OnProfile(p dynamo.Profile) {
	for i := range p.Counts {
		m.profile = append(m.profile, profileRecord{
			Run:    m.run,
			Turn:   p.Turn,
			Bin:    i,
			Center: p.Centers[i],
			Count:  p.Counts[i],
		})
	}
	m.maybeFlush()
}

func (m *Monitor) maybeFlush() {
	if len(m.bunch)+len(m.profile) >= m.batchSize {
		m.Flush()
	}
}

// Flush writes the buffered records in one transaction.
func (m *Monitor) Flush() error {
	if m.err != nil {
		return m.err
	}
	if len(m.bunch)+len(m.profile) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		m.err = err
		return err
	}
	for _, t := range []struct {
		name    string
		entries []any
	}{{bunchTable, m.bunch}, {profileTable, m.profile}} {
		if err := insert(tx, t.name, t.entries); err != nil {
			tx.Rollback()
			m.err = err
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		m.err = err
		return err
	}

	m.bunch = m.bunch[:0]
	m.profile = m.profile[:0]
	return nil
}

func insert(tx *sql.Tx, table string, entries []any) error {
	if len(entries) == 0 {
		return nil
	}
	n := structs.Names(entries[0])
	for i := range n {
		n[i] = "?"
	}
	stmt, err := tx.Prepare("INSERT INTO " + table + " VALUES (" + strings.Join(n, ", ") + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(structs.Values(e)...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

// Close flushes and closes the database.
func (m *Monitor) Close() error {
	err := m.Flush()
	if cerr := m.db.Close(); err == nil {
		err = cerr
	}
	return err
}

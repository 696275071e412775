package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/detour/internal/config"
	"github.com/agenthands/detour/internal/deviation"
)

// ErrNotFound is returned when a lookup or update matches no row.
var ErrNotFound = errors.New("store: not found")

// Column names of the backing CSV files.
const (
	colOrigin      = "Origin City"
	colDestination = "Destination City"
	colAnomalyID   = "id_anomaly"
	colRouteID     = "id_ruta"
	colTruckNumber = "truck_number"
	colDriver      = "driver"
	colDeparture   = "departure_time"
	colArrival     = "arrival_time"
)

// Tables gives access to the routes and anomalies CSV tables. The anomalies
// table is read-only; the routes table is mutated only by UpdateETA. Reads
// load the whole file and updates rewrite the whole file, which is safe only
// with a single writer.
type Tables struct {
	routesPath    string
	anomaliesPath string
}

func NewTables(cfg config.StoreConfig) *Tables {
	return &Tables{
		routesPath:    cfg.RoutesPath,
		anomaliesPath: cfg.AnomaliesPath,
	}
}

type table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

func (t *table) column(row []string, name string) (string, error) {
	i, ok := t.index[name]
	if !ok {
		return "", fmt.Errorf("missing column %q", name)
	}
	if i >= len(row) {
		return "", nil
	}
	return row[i], nil
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %s has no header row", path)
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	return &table{header: records[0], rows: records[1:], index: index}, nil
}

func matchesCity(row []string, t *table, origin, destination string) bool {
	o, err := t.column(row, colOrigin)
	if err != nil {
		return false
	}
	d, err := t.column(row, colDestination)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(o), origin) &&
		strings.EqualFold(strings.TrimSpace(d), destination)
}

// LookupAnomaly resolves an (origin, destination) pair to its anomaly
// identifier. City matching is case-insensitive.
func (s *Tables) LookupAnomaly(origin, destination string) (string, error) {
	t, err := readTable(s.anomaliesPath)
	if err != nil {
		return "", err
	}
	for _, row := range t.rows {
		if matchesCity(row, t, origin, destination) {
			id, err := t.column(row, colAnomalyID)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(id), nil
		}
	}
	return "", ErrNotFound
}

// LookupRoute returns the truck/driver context for a route identifier.
func (s *Tables) LookupRoute(routeID string) (*deviation.RouteInfo, error) {
	t, err := readTable(s.routesPath)
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		id, err := t.column(row, colRouteID)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(id) != routeID {
			continue
		}
		info := &deviation.RouteInfo{}
		if info.TruckNumber, err = t.column(row, colTruckNumber); err != nil {
			return nil, err
		}
		if info.Driver, err = t.column(row, colDriver); err != nil {
			return nil, err
		}
		if info.DepartureTime, err = t.column(row, colDeparture); err != nil {
			return nil, err
		}
		if info.ArrivalTime, err = t.column(row, colArrival); err != nil {
			return nil, err
		}
		return info, nil
	}
	return nil, ErrNotFound
}

// DriverInfo joins the anomalies table into the routes table for an
// (origin, destination) pair. ErrNotFound means either side of the join
// missed; the caller falls back to an unpersonalized opening.
func (s *Tables) DriverInfo(origin, destination string) (*deviation.RouteInfo, error) {
	anomalyID, err := s.LookupAnomaly(origin, destination)
	if err != nil {
		return nil, err
	}
	return s.LookupRoute(anomalyID)
}

// UpdateETA overwrites arrival_time on the routes row matching the
// (origin, destination) pair, case-insensitive. The table is rewritten in
// full through a temp file so a crash never leaves a half-written table.
// Returns ErrNotFound and leaves the file untouched when no row matches.
func (s *Tables) UpdateETA(origin, destination, newETA string) error {
	t, err := readTable(s.routesPath)
	if err != nil {
		return err
	}
	arrivalIdx, ok := t.index[colArrival]
	if !ok {
		return fmt.Errorf("routes table missing column %q", colArrival)
	}

	updated := false
	for _, row := range t.rows {
		if matchesCity(row, t, origin, destination) && arrivalIdx < len(row) {
			row[arrivalIdx] = newETA
			updated = true
		}
	}
	if !updated {
		return ErrNotFound
	}

	return writeTable(s.routesPath, t)
}

func writeTable(path string, t *table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(t.rows); err != nil {
		tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

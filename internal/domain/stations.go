package domain

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed stations/*.json
var stationFS embed.FS

// StationTables holds the three reference tables. They share no identity:
// a tide station code never names a buoy.
type StationTables struct {
	Tide    []Station
	Buoy    []Station
	Beaches []Station
}

// Loaded reports whether every table has at least one station.
func (t *StationTables) Loaded() bool {
	return t != nil && len(t.Tide) > 0 && len(t.Buoy) > 0 && len(t.Beaches) > 0
}

// LoadStationTables decodes the tables embedded in the binary.
func LoadStationTables() (*StationTables, error) {
	tide, err := loadTable("stations/tide.json")
	if err != nil {
		return nil, err
	}
	buoy, err := loadTable("stations/buoy.json")
	if err != nil {
		return nil, err
	}
	beaches, err := loadTable("stations/beach.json")
	if err != nil {
		return nil, err
	}
	return &StationTables{Tide: tide, Buoy: buoy, Beaches: beaches}, nil
}

func loadTable(name string) ([]Station, error) {
	raw, err := stationFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var stations []Station
	if err := json.Unmarshal(raw, &stations); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%s: empty table", name)
	}
	return stations, nil
}

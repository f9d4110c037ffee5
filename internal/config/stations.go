package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

var validate = validator.New()

// stationsFile is the YAML layout of STATIONS_FILE.
type stationsFile struct {
	Stations []coastal.StationCoordinate `yaml:"stations" validate:"dive"`
}

// LoadStations reads and validates a station table file.
func LoadStations(path string) ([]coastal.StationCoordinate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}
	return ParseStations(data)
}

// ParseStations decodes a station table. Duplicate ids are rejected.
func ParseStations(data []byte) ([]coastal.StationCoordinate, error) {
	var f stationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stations file: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid stations file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Stations))
	for _, s := range f.Stations {
		if _, dup := seen[s.StationID]; dup {
			return nil, fmt.Errorf("invalid stations file: duplicate station %q", s.StationID)
		}
		seen[s.StationID] = struct{}{}
	}
	return f.Stations, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the scene graph
// pipeline. Every field is a pointer so a partial JSON file only
// overrides what it names; the Get* methods supply the defaults.
type TuningConfig struct {
	// Merge params
	EnableMerging        *bool    `json:"enable_merging,omitempty"`
	ObjectMergeDistanceM *float64 `json:"object_merge_distance_m,omitempty"`
	PlacesMergeDistanceM *float64 `json:"places_merge_distance_m,omitempty"`
	PlacesDistToleranceM *float64 `json:"places_distance_tolerance_m,omitempty"`

	// Layer key prefixes, one character per ranked layer.
	ObjectPrefix   *string `json:"object_prefix,omitempty"`
	PlacePrefix    *string `json:"place_prefix,omitempty"`
	RoomPrefix     *string `json:"room_prefix,omitempty"`
	BuildingPrefix *string `json:"building_prefix,omitempty"`

	// Snapshot params
	SnapshotInterval *string `json:"snapshot_interval,omitempty"` // duration string like "60s"
	SnapshotOnExit   *bool   `json:"snapshot_on_exit,omitempty"`

	// Server params
	ListenAddr *string `json:"listen_addr,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ObjectMergeDistanceM != nil && *c.ObjectMergeDistanceM < 0 {
		return fmt.Errorf("object_merge_distance_m must be non-negative, got %f", *c.ObjectMergeDistanceM)
	}
	if c.PlacesMergeDistanceM != nil && *c.PlacesMergeDistanceM < 0 {
		return fmt.Errorf("places_merge_distance_m must be non-negative, got %f", *c.PlacesMergeDistanceM)
	}
	if c.PlacesDistToleranceM != nil && *c.PlacesDistToleranceM < 0 {
		return fmt.Errorf("places_distance_tolerance_m must be non-negative, got %f", *c.PlacesDistToleranceM)
	}

	// Validate SnapshotInterval can be parsed if set
	if c.SnapshotInterval != nil && *c.SnapshotInterval != "" {
		if _, err := time.ParseDuration(*c.SnapshotInterval); err != nil {
			return fmt.Errorf("invalid snapshot_interval '%s': %w", *c.SnapshotInterval, err)
		}
	}

	// Prefixes must be one character so they pack into node keys.
	prefixes := map[string]*string{
		"object_prefix":   c.ObjectPrefix,
		"place_prefix":    c.PlacePrefix,
		"room_prefix":     c.RoomPrefix,
		"building_prefix": c.BuildingPrefix,
	}
	seen := map[byte]string{}
	for name, p := range prefixes {
		if p == nil {
			continue
		}
		if len(*p) != 1 {
			return fmt.Errorf("%s must be a single character, got %q", name, *p)
		}
		if other, dup := seen[(*p)[0]]; dup {
			return fmt.Errorf("%s and %s both use prefix %q", name, other, *p)
		}
		seen[(*p)[0]] = name
	}

	return nil
}

// GetEnableMerging returns the enable_merging value or the default.
func (c *TuningConfig) GetEnableMerging() bool {
	if c.EnableMerging == nil {
		return true // default
	}
	return *c.EnableMerging
}

// GetObjectMergeDistanceM returns the object_merge_distance_m value or the default.
func (c *TuningConfig) GetObjectMergeDistanceM() float64 {
	if c.ObjectMergeDistanceM == nil {
		return 0.4
	}
	return *c.ObjectMergeDistanceM
}

// GetPlacesMergeDistanceM returns the places_merge_distance_m value or the default.
func (c *TuningConfig) GetPlacesMergeDistanceM() float64 {
	if c.PlacesMergeDistanceM == nil {
		return 0.4
	}
	return *c.PlacesMergeDistanceM
}

// GetPlacesDistToleranceM returns the places_distance_tolerance_m value or the default.
func (c *TuningConfig) GetPlacesDistToleranceM() float64 {
	if c.PlacesDistToleranceM == nil {
		return 1.0
	}
	return *c.PlacesDistToleranceM
}

// GetObjectPrefix returns the object_prefix value or the default.
func (c *TuningConfig) GetObjectPrefix() byte {
	if c.ObjectPrefix == nil {
		return 'o'
	}
	return (*c.ObjectPrefix)[0]
}

// GetPlacePrefix returns the place_prefix value or the default.
func (c *TuningConfig) GetPlacePrefix() byte {
	if c.PlacePrefix == nil {
		return 'p'
	}
	return (*c.PlacePrefix)[0]
}

// GetRoomPrefix returns the room_prefix value or the default.
func (c *TuningConfig) GetRoomPrefix() byte {
	if c.RoomPrefix == nil {
		return 'r'
	}
	return (*c.RoomPrefix)[0]
}

// GetBuildingPrefix returns the building_prefix value or the default.
func (c *TuningConfig) GetBuildingPrefix() byte {
	if c.BuildingPrefix == nil {
		return 'b'
	}
	return (*c.BuildingPrefix)[0]
}

// GetSnapshotInterval parses and returns the SnapshotInterval as a time.Duration.
func (c *TuningConfig) GetSnapshotInterval() time.Duration {
	if c.SnapshotInterval == nil || *c.SnapshotInterval == "" {
		return 60 * time.Second // default
	}
	d, err := time.ParseDuration(*c.SnapshotInterval)
	if err != nil {
		return 60 * time.Second // default on parse error
	}
	return d
}

// GetSnapshotOnExit returns the snapshot_on_exit value or the default.
func (c *TuningConfig) GetSnapshotOnExit() bool {
	if c.SnapshotOnExit == nil {
		return true
	}
	return *c.SnapshotOnExit
}

// GetListenAddr returns the listen_addr value or the default.
func (c *TuningConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// GetDBPath returns the db_path value or the default.
func (c *TuningConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "scenegraph.db"
	}
	return *c.DBPath
}

// Package config loads the gate controller settings file.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ExampleConfigPath is the checked-in sample configuration.
const ExampleConfigPath = "config/gate.example.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// GateConfig is the on-disk configuration. Every field is optional; the Get*
// methods supply the default for fields left out of the file, so partial
// configs are safe.
type GateConfig struct {
	// Camera is a stream URL or a local device index such as "0".
	Camera      *string `json:"camera,omitempty"`
	TrainingDir *string `json:"training_dir,omitempty"`
	CascadePath *string `json:"cascade_path,omitempty"`

	// Gate controller board
	SerialPort *string `json:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty"`

	// Authority service
	AuthorityURL *string `json:"authority_url,omitempty"`
	SpotID       *int    `json:"spot_id,omitempty"`
	HTTPTimeout  *string `json:"http_timeout,omitempty"` // duration string like "5s"

	// Detection
	MaxFeatures    *int     `json:"max_features,omitempty"`
	MatchDistance  *float64 `json:"match_distance,omitempty"`
	MatchThreshold *float64 `json:"match_threshold,omitempty"`
	MinRegionArea  *int     `json:"min_region_area,omitempty"`
	CenterWindow   *int     `json:"center_window,omitempty"`
	MinColorArea   *float64 `json:"min_color_area,omitempty"`

	// Gate timing
	FeatureDwell  *string `json:"feature_dwell,omitempty"`
	FeatureSettle *string `json:"feature_settle,omitempty"`
	RegionDwell   *string `json:"region_dwell,omitempty"`

	// Decision journal; empty disables it.
	JournalPath *string `json:"journal_path,omitempty"`
	// Admin debug server address; empty disables it.
	Listen *string `json:"listen,omitempty"`
}

// EmptyGateConfig returns a GateConfig with all fields unset.
func EmptyGateConfig() *GateConfig {
	return &GateConfig{}
}

// LoadGateConfig loads a GateConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadGateConfig(path string) (*GateConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyGateConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *GateConfig) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}

	if c.AuthorityURL != nil && *c.AuthorityURL != "" {
		u, err := url.Parse(*c.AuthorityURL)
		if err != nil {
			return fmt.Errorf("invalid authority_url '%s': %w", *c.AuthorityURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("authority_url must be http or https, got '%s'", *c.AuthorityURL)
		}
	}

	if c.MaxFeatures != nil && *c.MaxFeatures <= 0 {
		return fmt.Errorf("max_features must be positive, got %d", *c.MaxFeatures)
	}
	if c.MatchDistance != nil && *c.MatchDistance <= 0 {
		return fmt.Errorf("match_distance must be positive, got %f", *c.MatchDistance)
	}
	if c.MatchThreshold != nil {
		if *c.MatchThreshold <= 0 || *c.MatchThreshold >= 1 {
			return fmt.Errorf("match_threshold must be between 0 and 1, got %f", *c.MatchThreshold)
		}
	}
	if c.MinRegionArea != nil && *c.MinRegionArea <= 0 {
		return fmt.Errorf("min_region_area must be positive, got %d", *c.MinRegionArea)
	}
	if c.CenterWindow != nil && *c.CenterWindow <= 0 {
		return fmt.Errorf("center_window must be positive, got %d", *c.CenterWindow)
	}
	if c.MinColorArea != nil && *c.MinColorArea <= 0 {
		return fmt.Errorf("min_color_area must be positive, got %f", *c.MinColorArea)
	}

	for name, v := range map[string]*string{
		"http_timeout":   c.HTTPTimeout,
		"feature_dwell":  c.FeatureDwell,
		"feature_settle": c.FeatureSettle,
		"region_dwell":   c.RegionDwell,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func durationOr(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetCamera returns the camera source, defaulting to device 0.
func (c *GateConfig) GetCamera() string {
	return stringOr(c.Camera, "0")
}

// CameraDevice reports whether the camera source is a local device index and
// returns it.
func (c *GateConfig) CameraDevice() (int, bool) {
	id, err := strconv.Atoi(c.GetCamera())
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// GetTrainingDir returns the reference corpus root.
func (c *GateConfig) GetTrainingDir() string {
	return stringOr(c.TrainingDir, "training_images")
}

// GetCascadePath returns the Haar cascade file for the region fallback.
func (c *GateConfig) GetCascadePath() string {
	return stringOr(c.CascadePath, "cars.xml")
}

// GetSerialPort returns the gate controller port. Empty means simulation.
func (c *GateConfig) GetSerialPort() string {
	return stringOr(c.SerialPort, "")
}

// GetBaudRate returns the gate controller line speed.
func (c *GateConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 9600
	}
	return *c.BaudRate
}

// GetAuthorityURL returns the gate check endpoint.
func (c *GateConfig) GetAuthorityURL() string {
	return stringOr(c.AuthorityURL, "http://localhost:5000/api/gate/check-entry")
}

// GetSpotID returns the parking spot access is checked against.
func (c *GateConfig) GetSpotID() int {
	if c.SpotID == nil {
		return 1
	}
	return *c.SpotID
}

// GetHTTPTimeout returns the authority request timeout.
func (c *GateConfig) GetHTTPTimeout() time.Duration {
	return durationOr(c.HTTPTimeout, 5*time.Second)
}

// GetMaxFeatures returns the ORB keypoint cap per image.
func (c *GateConfig) GetMaxFeatures() int {
	if c.MaxFeatures == nil {
		return 1000
	}
	return *c.MaxFeatures
}

// GetMatchDistance returns the Hamming distance below which a match counts.
func (c *GateConfig) GetMatchDistance() float64 {
	if c.MatchDistance == nil {
		return 50
	}
	return *c.MatchDistance
}

// GetMatchThreshold returns the score a feature match must exceed.
func (c *GateConfig) GetMatchThreshold() float64 {
	if c.MatchThreshold == nil {
		return 0.05
	}
	return *c.MatchThreshold
}

// GetMinRegionArea returns the smallest cascade region treated as a vehicle.
func (c *GateConfig) GetMinRegionArea() int {
	if c.MinRegionArea == nil {
		return 2000
	}
	return *c.MinRegionArea
}

// GetCenterWindow returns the half-width of the lane-centering window.
func (c *GateConfig) GetCenterWindow() int {
	if c.CenterWindow == nil {
		return 50
	}
	return *c.CenterWindow
}

// GetMinColorArea returns the contour area a color band must exceed.
func (c *GateConfig) GetMinColorArea() float64 {
	if c.MinColorArea == nil {
		return 500
	}
	return *c.MinColorArea
}

// GetFeatureDwell returns how long the gate stays open after a feature grant.
func (c *GateConfig) GetFeatureDwell() time.Duration {
	return durationOr(c.FeatureDwell, 7*time.Second)
}

// GetFeatureSettle returns the wait after CLOSE on the feature path.
func (c *GateConfig) GetFeatureSettle() time.Duration {
	return durationOr(c.FeatureSettle, 2*time.Second)
}

// GetRegionDwell returns the wait after a region grant.
func (c *GateConfig) GetRegionDwell() time.Duration {
	return durationOr(c.RegionDwell, 5*time.Second)
}

// GetJournalPath returns the decision journal database path.
func (c *GateConfig) GetJournalPath() string {
	return stringOr(c.JournalPath, "")
}

// GetListen returns the admin debug server address.
func (c *GateConfig) GetListen() string {
	return stringOr(c.Listen, "")
}

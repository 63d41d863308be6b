package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"proctor-camera/internal/models"
)

// settingsFile is the on-disk shape of camera settings. The recording mode is kept as a
// string so the looser spellings ("none", "event-driven") are accepted.
type settingsFile struct {
	RecordingMode          string `toml:"recording_mode" yaml:"recording_mode" json:"recording_mode"`
	IntervalSeconds        *int   `toml:"interval_seconds" yaml:"interval_seconds" json:"interval_seconds"`
	CaptureOnButtonClick   bool   `toml:"capture_on_button_click" yaml:"capture_on_button_click" json:"capture_on_button_click"`
	CaptureOnMessageSend   bool   `toml:"capture_on_message_send" yaml:"capture_on_message_send" json:"capture_on_message_send"`
	CaptureOnQuestionStart bool   `toml:"capture_on_question_start" yaml:"capture_on_question_start" json:"capture_on_question_start"`
	Resolution             string `toml:"resolution" yaml:"resolution" json:"resolution"`
}

// LoadSettings reads camera settings from a .toml, .yaml/.yml or .json file.
// An empty path yields the zero settings (no recording mode).
func LoadSettings(path string) (models.CameraSettings, error) {
	if path == "" {
		return models.CameraSettings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.CameraSettings{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	return ParseSettings(data, filepath.Ext(path))
}

// ParseSettings decodes settings in the format named by ext
func ParseSettings(data []byte, ext string) (models.CameraSettings, error) {
	var raw settingsFile

	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return models.CameraSettings{}, fmt.Errorf("failed to parse TOML settings: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return models.CameraSettings{}, fmt.Errorf("failed to parse YAML settings: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return models.CameraSettings{}, fmt.Errorf("failed to parse JSON settings: %w", err)
		}
	default:
		return models.CameraSettings{}, fmt.Errorf("unsupported settings format %q", ext)
	}

	mode, err := models.ParseRecordingMode(raw.RecordingMode)
	if err != nil {
		return models.CameraSettings{}, err
	}

	settings := models.CameraSettings{
		RecordingMode:          mode,
		IntervalSeconds:        raw.IntervalSeconds,
		CaptureOnButtonClick:   raw.CaptureOnButtonClick,
		CaptureOnMessageSend:   raw.CaptureOnMessageSend,
		CaptureOnQuestionStart: raw.CaptureOnQuestionStart,
		Resolution:             raw.Resolution,
	}
	if err := settings.Validate(); err != nil {
		return models.CameraSettings{}, fmt.Errorf("invalid camera settings: %w", err)
	}
	return settings, nil
}

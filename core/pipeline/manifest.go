package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"ArtistHub/core/release"
	"ArtistHub/model"

	"gopkg.in/yaml.v3"
)

// Manifest is the result file the processing pipeline drops into the inbox.
type Manifest struct {
	UserID    int64    `json:"userId" yaml:"userId"`
	ReleaseID string   `json:"releaseId" yaml:"releaseId"`
	Status    string   `json:"status" yaml:"status"`
	Tracks    []string `json:"tracks" yaml:"tracks"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"` // 处理失败时的原因，仅记录日志
}

// manifestFormats maps accepted file extensions to decoders.
var manifestFormats = map[string]func([]byte, any) error{
	".json": json.Unmarshal,
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
}

// ParseManifest decodes and checks a manifest; the format follows the file
// extension of name. Track contents are validated by the release service.
func ParseManifest(name string, data []byte) (*Manifest, error) {
	unmarshal, ok := manifestFormats[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("invalid manifest: unsupported file type %q", filepath.Ext(name))
	}
	var m Manifest
	if err := unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	m.ReleaseID = strings.TrimSpace(m.ReleaseID)
	m.Status = strings.TrimSpace(strings.ToLower(m.Status))

	if m.UserID <= 0 {
		return nil, fmt.Errorf("invalid manifest: userId must be positive")
	}
	if m.ReleaseID == "" {
		return nil, fmt.Errorf("invalid manifest: releaseId is required")
	}
	switch model.ReleaseStatus(m.Status) {
	case model.StatusCompleted, model.StatusFailed:
	default:
		return nil, fmt.Errorf("invalid manifest: unsupported status %q", m.Status)
	}
	return &m, nil
}

// Result converts the manifest into the service's input.
func (m *Manifest) Result() release.PipelineResult {
	return release.PipelineResult{
		Status: model.ReleaseStatus(m.Status),
		Tracks: m.Tracks,
	}
}

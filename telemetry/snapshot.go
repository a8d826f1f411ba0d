package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the live particle positions at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    int64  `json:"tick"`

	Zoom   float64    `json:"zoom"`
	Bounds [4]float64 `json:"bounds"`

	NumParticles int `json:"num_particles"`
	MaxAge       int `json:"max_age"`

	Particles []ParticleState `json:"particles"`
}

// ParticleState is one live slot.
type ParticleState struct {
	Slot   int     `json:"slot"`
	Cohort int     `json:"cohort"`
	Lon    float32 `json:"lon"`
	Lat    float32 `json:"lat"`
}

// CollectParticles lists the non-sentinel slots of a read-back position buffer.
func CollectParticles(positions []float32, numParticles int) []ParticleState {
	if numParticles <= 0 {
		return nil
	}
	var out []ParticleState
	for slot := 0; slot < len(positions)/3; slot++ {
		j := slot * 3
		if positions[j] == 0 && positions[j+1] == 0 && positions[j+2] == 0 {
			continue
		}
		out = append(out, ParticleState{
			Slot:   slot,
			Cohort: slot / numParticles,
			Lon:    positions[j],
			Lat:    positions[j+1],
		})
	}
	return out
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}

package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete field state for replay.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Tick    int32   `json:"tick"`
	Elapsed float32 `json:"elapsed"`

	Mode  string  `json:"mode"`
	Audio float32 `json:"audio"`

	Scene *SceneState `json:"scene,omitempty"`
	Blend BlendState  `json:"blend"`

	Particles []ParticleState `json:"particles"`

	Moment *Moment `json:"moment,omitempty"`
}

// SceneState is the JSON-serializable form of an applied scene configuration.
// Colors are RGB triples in [0,1].
type SceneState struct {
	Primary   [3]float32 `json:"primary"`
	Secondary [3]float32 `json:"secondary"`
	Accent    [3]float32 `json:"accent"`

	Friction     float64 `json:"friction"`
	AttractForce float64 `json:"attract_force"`
	RepelForce   float64 `json:"repel_force"`
	MaxSpeed     float64 `json:"max_speed"`
	ParticleSize float64 `json:"particle_size"`

	ShapeVertices [][3]float32 `json:"shape_vertices,omitempty"`
}

// BlendState captures the exponential blender so a restored run resumes
// mid-transition instead of snapping.
type BlendState struct {
	Friction  float32 `json:"friction"`
	Attract   float32 `json:"attract"`
	TimeScale float32 `json:"time_scale"`
	Chaos     float32 `json:"chaos"`
	Align     float32 `json:"align"`

	Palette       [3][3]float32 `json:"palette"`
	PaletteActive bool          `json:"palette_active"`
}

// ParticleState holds one particle's complete state. Field names are kept
// short; a 30k-particle snapshot is already tens of megabytes.
type ParticleState struct {
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	Z  float32 `json:"z"`
	VX float32 `json:"vx"`
	VY float32 `json:"vy"`
	VZ float32 `json:"vz"`
	HX float32 `json:"hx"`
	HY float32 `json:"hy"`
	HZ float32 `json:"hz"`

	R    float32 `json:"r"`
	G    float32 `json:"g"`
	B    float32 `json:"b"`
	Size float32 `json:"size"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Moment != nil {
		// Sanitize moment type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Moment.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	// Compact encoding; indented output triples the file size at this scale.
	data, err := json.Marshal(snapshot)
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

package bridge

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pthm-cable/driftfield/input"
	"github.com/pthm-cable/driftfield/scene"
	"github.com/pthm-cable/driftfield/telemetry"
)

// Inbound message types.
const (
	MsgHands      = "hands"
	MsgAudio      = "audio"
	MsgScene      = "scene"
	MsgSceneClear = "scene_clear"
	MsgMode       = "mode"
	MsgProbe      = "probe"
)

// Message is the inbound JSON envelope. Type selects which payload fields
// are read; the rest are ignored.
type Message struct {
	Type string `json:"type"`

	// hands
	Hands []HandMessage `json:"hands,omitempty"`

	// audio
	Level *float32 `json:"level,omitempty"`

	// scene
	Scene *SceneMessage `json:"scene,omitempty"`

	// mode
	Mode string `json:"mode,omitempty"`

	// probe
	Index *int `json:"index,omitempty"`
}

// HandMessage is one detected hand as the host reports it, in normalized
// capture coordinates. Landmarks beyond the supported count are dropped,
// missing ones stay zero; a missing palm is derived from the landmarks.
type HandMessage struct {
	Landmarks  [][3]float32 `json:"landmarks,omitempty"`
	Palm       *[3]float32  `json:"palm,omitempty"`
	IsOpen     bool         `json:"is_open"`
	IsPinching bool         `json:"is_pinching"`
	Handedness string       `json:"handedness,omitempty"`
	Gesture    string       `json:"gesture,omitempty"`
}

// SceneMessage is a scene configuration on the wire. Colors are hex strings;
// numeric fields use the field defaults when zero or malformed.
type SceneMessage struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`

	Friction     float64 `json:"friction"`
	AttractForce float64 `json:"attract_force"`
	RepelForce   float64 `json:"repel_force"`
	MaxSpeed     float64 `json:"max_speed"`
	ParticleSize float64 `json:"particle_size"`

	ShapeVertices [][3]float32 `json:"shape_vertices,omitempty"`
}

// FrameHeader announces a binary particle frame. The payload that follows is
// Count particles of seven little-endian float32 values each:
// x y z r g b size.
type FrameHeader struct {
	Type   string `json:"type"` // "frame"
	Tick   int32  `json:"tick"`
	Count  int    `json:"count"`
	Stride int    `json:"stride"`
}

// StatsMessage broadcasts one flushed telemetry window.
type StatsMessage struct {
	Type  string                `json:"type"` // "stats"
	Stats telemetry.WindowStats `json:"stats"`
}

// ProbeReply answers a probe request with one particle's state.
type ProbeReply struct {
	Type     string     `json:"type"` // "probe"
	Index    int        `json:"index"`
	Found    bool       `json:"found"`
	Position [3]float32 `json:"position"`
	Velocity [3]float32 `json:"velocity"`
	Home     [3]float32 `json:"home"`
	Color    [3]float32 `json:"color"`
	Size     float32    `json:"size"`
}

// frameFloats is the per-particle float count in a binary frame payload.
const frameFloats = 7

// toFrame converts wire hands into an input frame. Unknown gesture or
// handedness names degrade to their zero labels rather than failing the
// whole frame.
func toFrame(hands []HandMessage) input.Frame {
	out := input.Frame{}
	for _, h := range hands {
		pose := input.HandPose{
			IsOpen:     h.IsOpen,
			IsPinching: h.IsPinching,
		}
		for i, lm := range h.Landmarks {
			if i >= input.NumLandmarks {
				break
			}
			pose.Landmarks[i] = input.Vec3{X: lm[0], Y: lm[1], Z: lm[2]}
		}
		if h.Palm != nil {
			pose.Palm = input.Vec3{X: h.Palm[0], Y: h.Palm[1], Z: h.Palm[2]}
		}
		if g, err := input.ParseGesture(h.Gesture); err == nil {
			pose.Gesture = g
		}
		if hd, err := input.ParseHandedness(h.Handedness); err == nil {
			pose.Handedness = hd
		}
		out.Hands = append(out.Hands, pose)
	}
	return out
}

// toScene converts a wire scene into a scene configuration. Color parse
// failures are reported so the caller can log them; the returned config is
// still usable, with failed colors left black.
func toScene(m *SceneMessage) (scene.Config, error) {
	sc := scene.Config{
		Friction:     m.Friction,
		AttractForce: m.AttractForce,
		RepelForce:   m.RepelForce,
		MaxSpeed:     m.MaxSpeed,
		ParticleSize: m.ParticleSize,
	}

	var err error
	parse := func(s, name string) scene.Color {
		if s == "" {
			return scene.Color{}
		}
		c, perr := scene.ParseHexColor(s)
		if perr != nil && err == nil {
			err = fmt.Errorf("%s color: %w", name, perr)
		}
		return c
	}
	sc.Primary = parse(m.Primary, "primary")
	sc.Secondary = parse(m.Secondary, "secondary")
	sc.Accent = parse(m.Accent, "accent")

	for _, v := range m.ShapeVertices {
		sc.ShapeVertices = append(sc.ShapeVertices, input.Vec3{X: v[0], Y: v[1], Z: v[2]})
	}
	return sc, err
}

// encodeFramePayload packs every stride-th particle into the binary frame
// layout. stride must be >= 1.
func encodeFramePayload(positions, colors, sizes []float32, stride int) []byte {
	n := len(sizes)
	count := (n + stride - 1) / stride
	buf := make([]byte, count*frameFloats*4)

	k := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[k:], math.Float32bits(v))
		k += 4
	}
	for i := 0; i < n; i += stride {
		j := i * 3
		put(positions[j])
		put(positions[j+1])
		put(positions[j+2])
		put(colors[j])
		put(colors[j+1])
		put(colors[j+2])
		put(sizes[i])
	}
	return buf
}

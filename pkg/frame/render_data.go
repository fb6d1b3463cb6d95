package frame

import "github.com/df07/go-restir-di/pkg/core"

// RefreshFlags tell the caller that accumulated results downstream are stale
type RefreshFlags uint32

const (
	RenderOptionsChanged RefreshFlags = 1 << iota
	LightingChanged
)

// Has reports whether any of the given flags are set
func (f RefreshFlags) Has(flags RefreshFlags) bool {
	return f&flags != 0
}

// RenderData bundles the textures of one frame. Optional inputs and outputs
// may be nil.
type RenderData struct {
	VBuffer       *Texture[Visibility]   // Required input
	MotionVectors *Texture[MotionVector] // Optional input
	ViewDir       *Texture[core.Vec3]    // Optional input, world-space direction toward the viewer
	Color         *Texture[RGBA]         // Required output
	Debug         *Texture[RGBA]         // Optional output

	// Refresh is set by the consumer of the frame when options or lighting changed
	Refresh RefreshFlags
}

// NewRenderData allocates all textures for the given size
func NewRenderData(width, height int) *RenderData {
	return &RenderData{
		VBuffer:       NewTexture[Visibility](width, height),
		MotionVectors: NewTexture[MotionVector](width, height),
		ViewDir:       NewTexture[core.Vec3](width, height),
		Color:         NewTexture[RGBA](width, height),
		Debug:         NewTexture[RGBA](width, height),
	}
}

// ChannelKind distinguishes inputs from outputs
type ChannelKind int

const (
	ChannelInput ChannelKind = iota
	ChannelOutput
)

func (k ChannelKind) String() string {
	if k == ChannelInput {
		return "input"
	}
	return "output"
}

// Channel describes one texture a pass reads or writes
type Channel struct {
	Name        string      `json:"name"`
	Kind        ChannelKind `json:"kind"`
	Format      string      `json:"format"`
	Optional    bool        `json:"optional"`
	Description string      `json:"description"`
}

// Channels lists the textures RenderData carries
func Channels() []Channel {
	return []Channel{
		{Name: "vbuffer", Kind: ChannelInput, Format: "RG32Uint", Description: "Visibility buffer in packed format"},
		{Name: "mvec", Kind: ChannelInput, Format: "RG32Float", Optional: true, Description: "Motion vector buffer (float format)"},
		{Name: "viewW", Kind: ChannelInput, Format: "RGBA32Float", Optional: true, Description: "World-space view direction (xyz float format)"},
		{Name: "color", Kind: ChannelOutput, Format: "RGBA32Float", Description: "Output color (sum of direct lighting)"},
		{Name: "debug", Kind: ChannelOutput, Format: "RGBA32Float", Optional: true, Description: "Debug output"},
	}
}

package present

import (
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/present/driver"
	"github.com/gogpu/present/internal/renderpass"
	"github.com/gogpu/present/internal/resource"
)

// GraphicsWindow is the frame protocol a rendering façade drives.
//
// A frame is BeginFrame, drawing, EndFrame, then BeginFlip, ReadyFlip and
// EndFlip. When BeginFrame returns true, EndFrame must be called before
// the next BeginFrame.
type GraphicsWindow interface {
	Open(provider gpucontext.DeviceProvider) error
	Close()
	BeginFrame(mode FrameMode) bool
	EndFrame(mode FrameMode)
	BeginFlip()
	ReadyFlip()
	EndFlip()
	Clear()
}

// Host is the OS window a Window presents to.
type Host interface {
	gpucontext.WindowProvider

	// NativeSurface returns the platform handles of the window.
	NativeSurface() driver.NativeSurface

	// Exposed reports whether the window is currently visible for drawing.
	Exposed() bool
}

// TextureCopier receives the finished color image of every rendered frame
// after the render pass has ended and before it is presented.
type TextureCopier interface {
	CopyToTextures(cmd driver.CmdBuffer, img *ImageResource) error
}

// ImageResource is a GPU image, its view and its tracked usage state.
type ImageResource = resource.Image

// ClearMask selects which attachments the render pass clears.
type ClearMask = renderpass.ClearMask

// Clear mask bits.
const (
	ClearColor   = renderpass.ClearColor
	ClearDepth   = renderpass.ClearDepth
	ClearStencil = renderpass.ClearStencil
)

// FrameMode is the kind of frame requested from BeginFrame.
type FrameMode int

const (
	// FrameRender draws and presents a swap image.
	FrameRender FrameMode = iota

	// FrameRefresh runs a frame for non-visual state only. No image is
	// acquired and nothing is presented.
	FrameRefresh

	// FrameParasite is a frame drawn into another window's buffers. It is
	// handled like FrameRefresh.
	FrameParasite
)

// String returns the mode name.
func (m FrameMode) String() string {
	switch m {
	case FrameRender:
		return "Render"
	case FrameRefresh:
		return "Refresh"
	case FrameParasite:
		return "Parasite"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// FrameState is the position of a window in the frame cycle.
type FrameState int

const (
	// StateIdle is between frames.
	StateIdle FrameState = iota

	// StateAcquiring is waiting for the next swap image.
	StateAcquiring

	// StateRenderPassActive is inside the render pass; draw commands may be
	// recorded.
	StateRenderPassActive

	// StateRenderPassEnded is after the render pass, before the frame is
	// submitted.
	StateRenderPassEnded

	// StatePresenting has a submitted frame waiting for EndFlip.
	StatePresenting
)

// String returns the state name.
func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAcquiring:
		return "Acquiring"
	case StateRenderPassActive:
		return "RenderPassActive"
	case StateRenderPassEnded:
		return "RenderPassEnded"
	case StatePresenting:
		return "Presenting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// FramebufferProperties are the requested, and after Open the negotiated,
// framebuffer properties of a window.
type FramebufferProperties struct {
	// SRGBColor requests an sRGB color format.
	SRGBColor bool

	// ColorBits and AlphaBits are filled in by Open.
	ColorBits int
	AlphaBits int

	// DepthBits and StencilBits request a depth/stencil buffer. Zero for
	// both means no depth buffer.
	DepthBits   int
	StencilBits int

	// FloatDepth requests floating-point depth.
	FloatDepth bool

	// BackBuffers is the requested number of back buffers. After Open it
	// holds the number actually created.
	BackBuffers int
}

// Stats are frame counters of a window.
type Stats struct {
	FramesBegun          uint64
	FramesPresented      uint64
	FramesSkipped        uint64
	SwapchainRecreations uint64
	RenderPassRebuilds   uint64
	PresentAnomalies     uint64
	QueueWaits           uint64
}

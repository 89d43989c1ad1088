// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// QueueFamilyIgnored marks a barrier that does not transfer queue ownership.
const QueueFamilyIgnored = ^uint32(0)

// Layout is the type of an image layout.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	LColorAttachment
	LDepthStencilAttachment
	LPresentSrc
	LTransferSrc
	LTransferDst
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LUndefined:
		return "Undefined"
	case LColorAttachment:
		return "ColorAttachment"
	case LDepthStencilAttachment:
		return "DepthStencilAttachment"
	case LPresentSrc:
		return "PresentSrc"
	case LTransferSrc:
		return "TransferSrc"
	case LTransferDst:
		return "TransferDst"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	AColorRead Access = 1 << iota
	AColorWrite
	ADSRead
	ADSWrite
	ATransferRead
	ATransferWrite
	AMemoryRead
	ANone Access = 0
)

// Stage is the type of a pipeline stage scope.
type Stage int

// Pipeline stages.
const (
	STopOfPipe Stage = 1 << iota
	SEarlyFragmentTests
	SLateFragmentTests
	SColorOutput
	STransfer
	SBottomOfPipe
	SNone Stage = 0
)

// Aspect is a set of image aspects.
type Aspect int

// Image aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// ColorSpace identifies how a presentation engine interprets color values.
type ColorSpace int

// Color spaces.
const (
	ColorSpaceSRGBNonlinear ColorSpace = iota
	ColorSpaceExtendedSRGBLinear
	ColorSpaceDisplayP3Nonlinear
)

// String returns the color space name.
func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceSRGBNonlinear:
		return "SRGBNonlinear"
	case ColorSpaceExtendedSRGBLinear:
		return "ExtendedSRGBLinear"
	case ColorSpaceDisplayP3Nonlinear:
		return "DisplayP3Nonlinear"
	default:
		return fmt.Sprintf("ColorSpace(%d)", int(c))
	}
}

// MemoryFlags are properties of a memory type.
type MemoryFlags int

// Memory type properties.
const (
	MemDeviceLocal MemoryFlags = 1 << iota
	MemHostVisible
	MemHostCoherent
)

// NativeSurface identifies a platform window.
type NativeSurface struct {
	// Display is the platform display connection (X11 Display*, wl_display*),
	// or 0 where the platform has none.
	Display uintptr

	// Window is the platform window handle (HWND, X11 Window, NSView*, ...).
	Window uintptr
}

// Extent is a 2D size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// String formats the extent as WxH.
func (e Extent) String() string { return fmt.Sprintf("%dx%d", e.Width, e.Height) }

// Rect is a 2D rectangle in framebuffer coordinates.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// SurfaceFormat pairs a color format with the color space the engine
// interprets it in. A single entry with gputypes.TextureFormatUndefined
// means the surface accepts any format.
type SurfaceFormat struct {
	Format     gputypes.TextureFormat
	ColorSpace ColorSpace
}

// SurfaceCapabilities are the image count and size limits of a surface.
// A MaxImageCount of 0 means there is no upper bound.
type SurfaceCapabilities struct {
	MinImageCount uint32
	MaxImageCount uint32
	CurrentExtent Extent
}

// SwapchainDesc describes a swapchain.
type SwapchainDesc struct {
	Label       string
	Surface     Surface
	Format      SurfaceFormat
	Extent      Extent
	ImageCount  uint32
	PresentMode gputypes.PresentMode
	Usage       gputypes.TextureUsage
	AlphaMode   gputypes.CompositeAlphaMode
	Clipped     bool

	// Old is the swapchain being replaced, or nil.
	Old Swapchain
}

// ImageDesc describes a device-owned 2D image.
type ImageDesc struct {
	Label       string
	Format      gputypes.TextureFormat
	Extent      Extent
	MipLevels   uint32
	ArrayLayers uint32
	Usage       gputypes.TextureUsage
}

// ImageViewDesc describes an image view.
type ImageViewDesc struct {
	Label       string
	Format      gputypes.TextureFormat
	Aspect      Aspect
	MipLevels   uint32
	ArrayLayers uint32
}

// MemoryRequirements are the allocation constraints of a resource.
// Bit i of TypeBits is set if memory type i may back the resource.
type MemoryRequirements struct {
	Size     uint64
	TypeBits uint32
}

// MemoryType is one of the device's memory types.
type MemoryType struct {
	Flags MemoryFlags
}

// AttachmentDesc describes one render pass attachment.
// StencilLoad and StencilStore are ignored for formats without stencil.
type AttachmentDesc struct {
	Format        gputypes.TextureFormat
	Load          gputypes.LoadOp
	Store         gputypes.StoreOp
	StencilLoad   gputypes.LoadOp
	StencilStore  gputypes.StoreOp
	InitialLayout Layout
	FinalLayout   Layout
}

// Subpass lists the attachment indices used by the single subpass.
// DepthStencil is -1 when the subpass has no depth/stencil attachment.
type Subpass struct {
	Color        []int
	DepthStencil int
}

// RenderPassDesc describes a single-subpass render pass.
type RenderPassDesc struct {
	Label       string
	Attachments []AttachmentDesc
	Subpass     Subpass
}

// FramebufferDesc describes a framebuffer. Attachments correspond by index
// to the attachments of Pass.
type FramebufferDesc struct {
	Label       string
	Pass        RenderPass
	Attachments []ImageView
	Width       uint32
	Height      uint32
	Layers      uint32
}

// ClearValue holds the clear value of one attachment.
type ClearValue struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32
}

// RenderPassBegin describes the start of a render pass instance.
// ClearValues correspond by index to the attachments of Pass.
type RenderPassBegin struct {
	Pass        RenderPass
	Framebuffer Framebuffer
	Area        Rect
	ClearValues []ClearValue
}

// Barrier is an execution and memory dependency.
type Barrier struct {
	StageBefore  Stage
	StageAfter   Stage
	AccessBefore Access
	AccessAfter  Access
}

// Transition is a layout transition of an image subresource range.
type Transition struct {
	Barrier

	LayoutBefore Layout
	LayoutAfter  Layout
	Image        Image
	Aspect       Aspect
	MipLevels    uint32
	ArrayLayers  uint32

	// SrcFamily and DstFamily are QueueFamilyIgnored unless ownership moves
	// between queue families.
	SrcFamily uint32
	DstFamily uint32
}

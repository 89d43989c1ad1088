// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Errors.
var (
	// ErrCannotPresent means that the device does not support presentation
	// to the given surface.
	ErrCannotPresent = errors.New("driver: presentation not supported")

	// ErrSurfaceLost means the native surface is gone and must be recreated.
	ErrSurfaceLost = errors.New("driver: surface lost")

	// ErrNoMemoryType means no memory type satisfies an allocation request.
	ErrNoMemoryType = errors.New("driver: no compatible memory type")

	// ErrRecording means a command was issued outside an open recording.
	ErrRecording = errors.New("driver: command buffer not recording")

	// ErrAcquireStalled means the presentation engine never handed out a
	// swap image. The device or compositor is most likely hung.
	ErrAcquireStalled = errors.New("driver: swap image acquire stalled")
)

// Destroyer is the interface that wraps the Destroy method.
// Handles may own memory that is not managed by the GC, so Destroy must
// be called explicitly.
type Destroyer interface {
	Destroy()
}

// Surface is a presentable window surface.
type Surface interface{ Destroyer }

// Swapchain is the presentation engine's chain of images for a surface.
type Swapchain interface{ Destroyer }

// Image is a GPU image. Swapchain images are owned by the swapchain and
// must not be destroyed individually.
type Image interface{ Destroyer }

// ImageView is a view over a subresource range of an Image.
type ImageView interface{ Destroyer }

// Memory is a device memory allocation.
type Memory interface{ Destroyer }

// RenderPass describes attachment load/store behavior for one subpass.
type RenderPass interface{ Destroyer }

// Framebuffer binds image views to the attachments of a RenderPass.
type Framebuffer interface{ Destroyer }

// Semaphore orders GPU work between acquire, submit and present.
type Semaphore interface{ Destroyer }

// Context is the device/queue collaborator of a window.
//
// It owns the single graphics+present queue and the per-frame command
// recording. BeginFrame opens a fresh recording, EndFrame closes and
// submits it.
type Context interface {
	// Device returns the resource-creation interface.
	Device() Device

	// Presenter returns the presentation interface.
	Presenter() Presenter

	// QueueFamilyIndex returns the graphics queue family used for
	// ownership fields of barriers.
	QueueFamilyIndex() uint32

	// WaitIdle blocks until the queue has no outstanding work.
	WaitIdle() error

	// BeginFrame opens the command recording for a new frame.
	BeginFrame() error

	// EndFrame closes the current recording and submits it.
	EndFrame(frame uint64) error

	// Commands returns the current command recording.
	Commands() CmdBuffer
}

// Device creates GPU resources.
type Device interface {
	CreateImage(desc *ImageDesc) (Image, error)
	ImageMemoryRequirements(img Image) MemoryRequirements
	MemoryTypes() []MemoryType
	AllocateMemory(size uint64, typeIndex uint32) (Memory, error)
	BindImageMemory(img Image, mem Memory) error
	CreateImageView(img Image, desc *ImageViewDesc) (ImageView, error)
	CreateRenderPass(desc *RenderPassDesc) (RenderPass, error)
	CreateFramebuffer(desc *FramebufferDesc) (Framebuffer, error)
	CreateSemaphore() (Semaphore, error)

	// SupportsDepthStencil reports whether format can be used as an
	// optimally tiled depth/stencil attachment.
	SupportsDepthStencil(format gputypes.TextureFormat) bool
}

// Presenter is the presentation side of a device.
//
// Query methods return slices sized from the implementation's results;
// callers must not assume a fixed upper bound.
type Presenter interface {
	CreateSurface(native NativeSurface) (Surface, error)
	SurfaceFormats(s Surface) ([]SurfaceFormat, error)
	SurfaceCapabilities(s Surface) (SurfaceCapabilities, error)
	SurfacePresentModes(s Surface) ([]gputypes.PresentMode, error)
	CreateSwapchain(desc *SwapchainDesc) (Swapchain, error)

	// SwapchainImages returns the images of sc. The engine may return more
	// images than requested.
	SwapchainImages(sc Swapchain) ([]Image, error)

	// AcquireNextImage blocks until an image is available and returns its
	// index. signal is signaled when the image may be written.
	AcquireNextImage(sc Swapchain, signal Semaphore) (uint32, error)

	// QueuePresent presents image index of sc. Out-of-date and suboptimal
	// surfaces are reported through the returned status, not as errors.
	QueuePresent(sc Swapchain, index uint32, wait Semaphore) (gputypes.SurfaceStatus, error)
}

// CmdBuffer is the command recording of the current frame.
type CmdBuffer interface {
	// Reset drops all recorded commands and references to resources.
	Reset() error

	BeginRenderPass(begin *RenderPassBegin)
	EndRenderPass()

	// PipelineBarrier records layout transitions.
	PipelineBarrier(transitions []Transition)

	// ClearColorImage clears img, which must be in layout, outside of a
	// render pass.
	ClearColorImage(img Image, layout Layout, color gputypes.Color)
}

// ContextProvider is implemented by device providers whose Device method
// returns a native handle rather than a Context.
type ContextProvider interface {
	DriverContext() Context
}

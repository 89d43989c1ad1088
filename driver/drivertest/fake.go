// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package drivertest provides a recording in-memory implementation of the
// driver contract for tests.
//
// A Fake implements driver.Context, driver.Device and driver.Presenter at
// once. Every call is appended to Calls, live handles are counted per kind,
// and individual operations can be made to fail through Fail.
//
//	f := drivertest.New()
//	f.DepthStencil = map[gputypes.TextureFormat]bool{
//	    gputypes.TextureFormatDepth24PlusStencil8: true,
//	}
//	f.Fail["CreateFramebuffer"] = errors.New("out of memory")
package drivertest

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// Handle kinds reported by Live.
const (
	KindSurface     = "surface"
	KindSwapchain   = "swapchain"
	KindSwapImage   = "swapimage"
	KindImage       = "image"
	KindImageView   = "imageview"
	KindMemory      = "memory"
	KindRenderPass  = "renderpass"
	KindFramebuffer = "framebuffer"
	KindSemaphore   = "semaphore"
)

// Fake is a recording driver.Context.
type Fake struct {
	// Formats is returned by SurfaceFormats.
	Formats []driver.SurfaceFormat

	// Capabilities is returned by SurfaceCapabilities.
	Capabilities driver.SurfaceCapabilities

	// PresentModes is returned by SurfacePresentModes.
	PresentModes []gputypes.PresentMode

	// DepthStencil lists the supported depth/stencil formats.
	// A nil map supports every format.
	DepthStencil map[gputypes.TextureFormat]bool

	// ExtraImages is added to the requested image count when a swapchain
	// is created, emulating engines that return more images than asked.
	ExtraImages uint32

	// Memory is returned by MemoryTypes.
	Memory []driver.MemoryType

	// AcquireIndex overrides the acquired image index. n is the number of
	// swapchain images. By default images are handed out round-robin.
	AcquireIndex func(n int) uint32

	// PresentStatus is consumed in order by QueuePresent. Once empty,
	// presents report gputypes.SurfaceStatusGood.
	PresentStatus []gputypes.SurfaceStatus

	// PresentErr is returned by every QueuePresent when non-nil.
	PresentErr error

	// Fail maps an operation name (for example "CreateRenderPass") to the
	// error it returns.
	Fail map[string]error

	// Family is returned by QueueFamilyIndex.
	Family uint32

	// Calls records every operation in order.
	Calls []string

	// WaitIdles counts WaitIdle calls.
	WaitIdles int

	// Passes records every render pass created, in order.
	Passes []*RenderPass

	// Swapchains records every swapchain created, in order.
	Swapchains []*Swapchain

	// Submitted holds the commands of every EndFrame, in order.
	Submitted [][]Command

	// Frames holds the frame numbers passed to EndFrame.
	Frames []uint64

	// Presents holds the image index of every QueuePresent.
	Presents []uint32

	// DoubleDestroys counts handles destroyed more than once.
	DoubleDestroys int

	cmd  *CmdBuffer
	live map[string]int
	ids  int
	next uint32
}

var (
	_ driver.Context   = (*Fake)(nil)
	_ driver.Device    = (*Fake)(nil)
	_ driver.Presenter = (*Fake)(nil)
)

// New returns a Fake advertising BGRA8 sRGB and linear surface formats,
// 2 to 8 images, Fifo and Mailbox present modes, every depth format and a
// single device-local memory type.
func New() *Fake {
	f := &Fake{
		Formats: []driver.SurfaceFormat{
			{Format: gputypes.TextureFormatBGRA8UnormSrgb, ColorSpace: driver.ColorSpaceSRGBNonlinear},
			{Format: gputypes.TextureFormatBGRA8Unorm, ColorSpace: driver.ColorSpaceSRGBNonlinear},
		},
		Capabilities: driver.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8},
		PresentModes: []gputypes.PresentMode{gputypes.PresentModeFifo, gputypes.PresentModeMailbox},
		Memory:       []driver.MemoryType{{Flags: driver.MemDeviceLocal}},
		Fail:         make(map[string]error),
		live:         make(map[string]int),
	}
	f.cmd = &CmdBuffer{f: f}
	return f
}

// Live returns the number of live handles of the given kind.
func (f *Fake) Live(kind string) int { return f.live[kind] }

// Count returns how many times op appears in Calls.
func (f *Fake) Count(op string) int {
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// Cmd returns the command buffer of the fake.
func (f *Fake) Cmd() *CmdBuffer { return f.cmd }

// Provider wraps f as a gpucontext.DeviceProvider whose Device is f.
func (f *Fake) Provider() *Provider { return &Provider{Ctx: f} }

func (f *Fake) call(op string) error {
	f.Calls = append(f.Calls, op)
	if err, ok := f.Fail[op]; ok && err != nil {
		return err
	}
	return nil
}

func (f *Fake) newObj(kind string) obj {
	f.ids++
	f.live[kind]++
	return obj{f: f, kind: kind, id: f.ids}
}

// obj is the common part of every fake handle.
type obj struct {
	f         *Fake
	kind      string
	id        int
	destroyed bool
}

// ID returns the creation sequence number of the handle.
func (o *obj) ID() int { return o.id }

// Destroyed reports whether Destroy has been called.
func (o *obj) Destroyed() bool { return o.destroyed }

func (o *obj) release() bool {
	if o.destroyed {
		o.f.DoubleDestroys++
		return false
	}
	o.destroyed = true
	o.f.live[o.kind]--
	return true
}

func (o *obj) String() string { return fmt.Sprintf("%s#%d", o.kind, o.id) }

// Surface is a fake driver.Surface.
type Surface struct {
	obj
	Native driver.NativeSurface
}

// Destroy releases the surface.
func (s *Surface) Destroy() { s.f.Calls = append(s.f.Calls, "DestroySurface"); s.release() }

// Swapchain is a fake driver.Swapchain.
type Swapchain struct {
	obj
	Desc   driver.SwapchainDesc
	Images []*Image
}

// Destroy releases the swapchain and its images.
func (s *Swapchain) Destroy() {
	s.f.Calls = append(s.f.Calls, "DestroySwapchain")
	if !s.release() {
		return
	}
	for _, img := range s.Images {
		img.release()
	}
}

// Image is a fake driver.Image.
type Image struct {
	obj
	Desc      driver.ImageDesc
	Swapchain *Swapchain
	Memory    *Memory
}

// Destroy releases the image. Destroying a swapchain image is recorded as
// a double destroy once its swapchain goes away.
func (i *Image) Destroy() { i.f.Calls = append(i.f.Calls, "DestroyImage"); i.release() }

// ImageView is a fake driver.ImageView.
type ImageView struct {
	obj
	Image *Image
	Desc  driver.ImageViewDesc
}

// Destroy releases the view.
func (v *ImageView) Destroy() { v.f.Calls = append(v.f.Calls, "DestroyImageView"); v.release() }

// Memory is a fake driver.Memory.
type Memory struct {
	obj
	Size      uint64
	TypeIndex uint32
}

// Destroy frees the allocation.
func (m *Memory) Destroy() { m.f.Calls = append(m.f.Calls, "FreeMemory"); m.release() }

// RenderPass is a fake driver.RenderPass.
type RenderPass struct {
	obj
	Desc driver.RenderPassDesc
}

// Destroy releases the render pass.
func (p *RenderPass) Destroy() { p.f.Calls = append(p.f.Calls, "DestroyRenderPass"); p.release() }

// Framebuffer is a fake driver.Framebuffer.
type Framebuffer struct {
	obj
	Desc driver.FramebufferDesc
}

// Destroy releases the framebuffer.
func (b *Framebuffer) Destroy() { b.f.Calls = append(b.f.Calls, "DestroyFramebuffer"); b.release() }

// Semaphore is a fake driver.Semaphore.
type Semaphore struct {
	obj
}

// Destroy releases the semaphore.
func (s *Semaphore) Destroy() { s.f.Calls = append(s.f.Calls, "DestroySemaphore"); s.release() }

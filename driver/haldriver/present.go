// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/present/driver"
)

// Image count limits reported for every surface. hal surfaces manage their
// own image count; the slots only bound how many frames may be in flight.
const (
	minSlots = 2
	maxSlots = 3
)

// acquireRetries bounds the polling of backends that report ErrNotReady
// instead of blocking.
var acquireRetries = 2000

const acquireBackoff = time.Millisecond

// surface is a driver.Surface.
type surface struct {
	ctx        *Context
	hal        hal.Surface
	configured bool
}

func (s *surface) Destroy() {
	if s.hal == nil {
		return
	}
	if s.configured && s.ctx.device != nil {
		s.hal.Unconfigure(s.ctx.device)
		s.configured = false
	}
	s.hal.Destroy()
	s.hal = nil
}

// slot is one swapchain image. It holds the surface texture acquired into
// it until that texture is presented.
type slot struct {
	tex        hal.SurfaceTexture
	view       hal.TextureView
	suboptimal bool
}

// swapchain is a driver.Swapchain over a configured hal surface.
type swapchain struct {
	ctx     *Context
	surface *surface
	label   string
	format  gputypes.TextureFormat
	slots   []*slot
	images  []driver.Image
	next    int
}

// Destroy discards unpresented textures, destroys the slot views and
// unconfigures the surface.
func (sc *swapchain) Destroy() {
	if sc.surface == nil {
		return
	}
	for _, s := range sc.slots {
		sc.releaseSlot(s, true)
	}
	if sc.surface.configured && sc.ctx.device != nil {
		sc.surface.hal.Unconfigure(sc.ctx.device)
		sc.surface.configured = false
	}
	sc.surface = nil
	sc.slots = nil
	sc.images = nil
}

func (sc *swapchain) releaseSlot(s *slot, discard bool) {
	if s.view != nil {
		sc.ctx.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil && discard {
		sc.surface.hal.DiscardTexture(s.tex)
	}
	s.tex = nil
	s.suboptimal = false
}

// CreateSurface creates a hal surface for the native window.
func (c *Context) CreateSurface(native driver.NativeSurface) (driver.Surface, error) {
	if c.closed {
		return nil, ErrClosed
	}
	hs, err := c.instance.CreateSurface(native.Display, native.Window)
	if err != nil {
		return nil, fmt.Errorf("haldriver: create surface: %w", err)
	}
	return &surface{ctx: c, hal: hs}, nil
}

func (c *Context) surfaceCaps(s driver.Surface) (*surface, *hal.SurfaceCapabilities, error) {
	hs, ok := s.(*surface)
	if !ok {
		return nil, nil, ErrForeignHandle
	}
	caps := c.adapter.SurfaceCapabilities(hs.hal)
	if caps == nil {
		return nil, nil, driver.ErrCannotPresent
	}
	return hs, caps, nil
}

// SurfaceFormats returns the adapter's formats for s, in the sRGB
// nonlinear color space.
func (c *Context) SurfaceFormats(s driver.Surface) ([]driver.SurfaceFormat, error) {
	_, caps, err := c.surfaceCaps(s)
	if err != nil {
		return nil, err
	}
	formats := make([]driver.SurfaceFormat, 0, len(caps.Formats))
	for _, f := range caps.Formats {
		formats = append(formats, driver.SurfaceFormat{Format: f, ColorSpace: driver.ColorSpaceSRGBNonlinear})
	}
	return formats, nil
}

// SurfaceCapabilities returns the slot limits. The current extent is left
// to the window.
func (c *Context) SurfaceCapabilities(s driver.Surface) (driver.SurfaceCapabilities, error) {
	if _, _, err := c.surfaceCaps(s); err != nil {
		return driver.SurfaceCapabilities{}, err
	}
	return driver.SurfaceCapabilities{MinImageCount: minSlots, MaxImageCount: maxSlots}, nil
}

// SurfacePresentModes returns the adapter's present modes for s.
func (c *Context) SurfacePresentModes(s driver.Surface) ([]gputypes.PresentMode, error) {
	_, caps, err := c.surfaceCaps(s)
	if err != nil {
		return nil, err
	}
	return append([]gputypes.PresentMode(nil), caps.PresentModes...), nil
}

// CreateSwapchain configures the surface and creates desc.ImageCount slots.
func (c *Context) CreateSwapchain(desc *driver.SwapchainDesc) (driver.Swapchain, error) {
	if c.closed {
		return nil, ErrClosed
	}
	hs, ok := desc.Surface.(*surface)
	if !ok {
		return nil, ErrForeignHandle
	}
	if old, ok := desc.Old.(*swapchain); ok && old != nil {
		old.Destroy()
	}
	err := hs.hal.Configure(c.device, &hal.SurfaceConfiguration{
		Width:       desc.Extent.Width,
		Height:      desc.Extent.Height,
		Format:      desc.Format.Format,
		Usage:       desc.Usage,
		PresentMode: desc.PresentMode,
		AlphaMode:   desc.AlphaMode,
	})
	if err != nil {
		return nil, fmt.Errorf("haldriver: configure surface %s: %w", desc.Extent, err)
	}
	hs.configured = true

	n := int(min(max(desc.ImageCount, minSlots), maxSlots))
	sc := &swapchain{ctx: c, surface: hs, label: desc.Label, format: desc.Format.Format}
	for range n {
		s := &slot{}
		sc.slots = append(sc.slots, s)
		sc.images = append(sc.images, &image{
			ctx:    c,
			label:  desc.Label,
			format: desc.Format.Format,
			extent: desc.Extent,
			slot:   s,
		})
	}
	c.format = desc.Format.Format
	slogger().Debug("haldriver: surface configured",
		"extent", desc.Extent.String(),
		"format", desc.Format.Format.String(),
		"mode", desc.PresentMode.String(),
		"slots", n)
	return sc, nil
}

// SwapchainImages returns one image per slot.
func (c *Context) SwapchainImages(sc driver.Swapchain) ([]driver.Image, error) {
	s, ok := sc.(*swapchain)
	if !ok {
		return nil, ErrForeignHandle
	}
	return append([]driver.Image(nil), s.images...), nil
}

// AcquireNextImage acquires a surface texture into the next slot and
// returns the slot index. signal's fence is handed to the backend.
func (c *Context) AcquireNextImage(sc driver.Swapchain, signal driver.Semaphore) (uint32, error) {
	if c.closed {
		return 0, ErrClosed
	}
	s, ok := sc.(*swapchain)
	if !ok || s.surface == nil {
		return 0, ErrForeignHandle
	}
	var fence hal.Fence
	if sem, ok := signal.(*semaphore); ok {
		fence = sem.fence
	}

	var acquired *hal.AcquiredSurfaceTexture
	var err error
	for range acquireRetries {
		acquired, err = s.surface.hal.AcquireTexture(fence)
		if !errors.Is(err, hal.ErrNotReady) && !errors.Is(err, hal.ErrTimeout) {
			break
		}
		time.Sleep(acquireBackoff)
	}
	switch {
	case errors.Is(err, hal.ErrNotReady), errors.Is(err, hal.ErrTimeout):
		slogger().Error("haldriver: no swap image after polling",
			"label", s.label, "attempts", acquireRetries, "err", err)
		return 0, fmt.Errorf("haldriver: acquire: %w: %w", driver.ErrAcquireStalled, err)
	case errors.Is(err, hal.ErrSurfaceLost):
		return 0, fmt.Errorf("haldriver: acquire: %w: %w", driver.ErrSurfaceLost, err)
	case err != nil:
		return 0, fmt.Errorf("haldriver: acquire: %w", err)
	}

	idx := s.next
	s.next = (s.next + 1) % len(s.slots)
	sl := s.slots[idx]
	s.releaseSlot(sl, true)

	view, err := c.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           fmt.Sprintf("%s_view_%d", s.label, idx),
		Format:          s.format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		s.surface.hal.DiscardTexture(acquired.Texture)
		return 0, fmt.Errorf("haldriver: surface view: %w", err)
	}
	sl.tex = acquired.Texture
	sl.view = view
	sl.suboptimal = acquired.Suboptimal
	return uint32(idx), nil
}

// QueuePresent presents the texture held by slot index. Outdated and lost
// surfaces are reported as statuses.
func (c *Context) QueuePresent(sc driver.Swapchain, index uint32, _ driver.Semaphore) (gputypes.SurfaceStatus, error) {
	if c.closed {
		return gputypes.SurfaceStatusLost, ErrClosed
	}
	s, ok := sc.(*swapchain)
	if !ok || s.surface == nil {
		return gputypes.SurfaceStatusLost, ErrForeignHandle
	}
	if int(index) >= len(s.slots) || s.slots[index].tex == nil {
		return gputypes.SurfaceStatusLost, fmt.Errorf("haldriver: present: slot %d holds no texture", index)
	}
	sl := s.slots[index]
	suboptimal := sl.suboptimal

	err := c.queue.Present(s.surface.hal, sl.tex, nil)
	// The view may still be read by the submitted frame.
	c.cmd.garbage = append(c.cmd.garbage, sl.view)
	sl.view = nil
	sl.tex = nil
	sl.suboptimal = false

	switch {
	case errors.Is(err, hal.ErrSurfaceOutdated):
		return gputypes.SurfaceStatusOutdated, nil
	case errors.Is(err, hal.ErrSurfaceLost):
		return gputypes.SurfaceStatusLost, nil
	case err != nil:
		return gputypes.SurfaceStatusLost, fmt.Errorf("haldriver: present: %w", err)
	case suboptimal:
		return gputypes.SurfaceStatusSuboptimal, nil
	}
	return gputypes.SurfaceStatusGood, nil
}

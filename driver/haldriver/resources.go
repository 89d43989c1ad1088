// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/present/driver"
)

// image is a driver.Image. Owned images carry a hal texture; swapchain
// images are bound to a slot whose texture changes on every acquire.
type image struct {
	ctx    *Context
	label  string
	format gputypes.TextureFormat
	extent driver.Extent
	tex    hal.Texture
	slot   *slot
	mem    *memory
}

// texture returns the texture currently backing img, or nil for a slot
// image that holds no acquired texture.
func (img *image) texture() hal.Texture {
	if img.slot != nil {
		if img.slot.tex == nil {
			return nil
		}
		return img.slot.tex
	}
	return img.tex
}

func (img *image) Destroy() {
	if img.slot != nil {
		// Owned by the swapchain.
		return
	}
	if img.tex != nil {
		img.ctx.device.DestroyTexture(img.tex)
		img.tex = nil
	}
}

// memory is a driver.Memory. hal textures own their memory, so an
// allocation only records its size and binding.
type memory struct {
	size  uint64
	bound *image
}

func (m *memory) Destroy() { m.bound = nil }

// imageView is a driver.ImageView. Views of slot images resolve to the
// view of the texture acquired into the slot.
type imageView struct {
	ctx  *Context
	img  *image
	view hal.TextureView
}

func (v *imageView) halView() hal.TextureView {
	if v.img.slot != nil {
		return v.img.slot.view
	}
	return v.view
}

func (v *imageView) Destroy() {
	if v.view != nil {
		v.ctx.device.DestroyTextureView(v.view)
		v.view = nil
	}
}

// renderPass is a driver.RenderPass. hal has no render pass object; the
// attachment operations are applied when the pass begins.
type renderPass struct {
	desc driver.RenderPassDesc
}

func (*renderPass) Destroy() {}

// framebuffer is a driver.Framebuffer.
type framebuffer struct {
	pass  *renderPass
	views []*imageView
	width uint32
	hgt   uint32
}

func (fb *framebuffer) Destroy() { fb.views = nil }

// semaphore is a driver.Semaphore backed by a hal fence.
type semaphore struct {
	ctx   *Context
	fence hal.Fence
}

func (s *semaphore) Destroy() {
	if s.fence != nil && s.ctx.device != nil {
		s.ctx.device.DestroyFence(s.fence)
	}
	s.fence = nil
}

// CreateImage creates a 2D texture.
func (c *Context) CreateImage(desc *driver.ImageDesc) (driver.Image, error) {
	if c.closed {
		return nil, ErrClosed
	}
	layers := max(desc.ArrayLayers, 1)
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, DepthOrArrayLayers: layers},
		MipLevelCount: max(desc.MipLevels, 1),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("haldriver: create texture %q: %w", desc.Label, err)
	}
	return &image{ctx: c, label: desc.Label, format: desc.Format, extent: desc.Extent, tex: tex}, nil
}

// ImageMemoryRequirements returns the texel size of img in the single
// memory type.
func (c *Context) ImageMemoryRequirements(img driver.Image) driver.MemoryRequirements {
	i, ok := img.(*image)
	if !ok {
		return driver.MemoryRequirements{}
	}
	size := uint64(i.extent.Width) * uint64(i.extent.Height) * uint64(bytesPerPixel(i.format))
	return driver.MemoryRequirements{Size: size, TypeBits: 1}
}

// MemoryTypes returns one device-local type.
func (c *Context) MemoryTypes() []driver.MemoryType {
	return []driver.MemoryType{{Flags: driver.MemDeviceLocal}}
}

// AllocateMemory returns an allocation record.
func (c *Context) AllocateMemory(size uint64, typeIndex uint32) (driver.Memory, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if typeIndex != 0 {
		return nil, fmt.Errorf("haldriver: memory type %d: %w", typeIndex, driver.ErrNoMemoryType)
	}
	return &memory{size: size}, nil
}

// BindImageMemory records the binding of mem to img.
func (c *Context) BindImageMemory(img driver.Image, mem driver.Memory) error {
	i, ok := img.(*image)
	m, mok := mem.(*memory)
	if !ok || !mok {
		return ErrForeignHandle
	}
	if i.slot != nil {
		return fmt.Errorf("haldriver: bind memory to swapchain image %q", i.label)
	}
	if m.bound != nil {
		return fmt.Errorf("haldriver: memory already bound to %q", m.bound.label)
	}
	m.bound = i
	i.mem = m
	return nil
}

// CreateImageView creates a view of img. Views of swapchain images follow
// the texture acquired into their slot.
func (c *Context) CreateImageView(img driver.Image, desc *driver.ImageViewDesc) (driver.ImageView, error) {
	if c.closed {
		return nil, ErrClosed
	}
	i, ok := img.(*image)
	if !ok {
		return nil, ErrForeignHandle
	}
	v := &imageView{ctx: c, img: i}
	if i.slot != nil {
		return v, nil
	}
	view, err := c.device.CreateTextureView(i.tex, &hal.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          desc.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          halAspect(desc.Aspect),
		MipLevelCount:   max(desc.MipLevels, 1),
		ArrayLayerCount: max(desc.ArrayLayers, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("haldriver: create view %q: %w", desc.Label, err)
	}
	v.view = view
	return v, nil
}

// CreateRenderPass records desc.
func (c *Context) CreateRenderPass(desc *driver.RenderPassDesc) (driver.RenderPass, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if len(desc.Attachments) == 0 {
		return nil, fmt.Errorf("haldriver: render pass %q has no attachments", desc.Label)
	}
	for _, idx := range append(append([]int(nil), desc.Subpass.Color...), desc.Subpass.DepthStencil) {
		if idx >= len(desc.Attachments) {
			return nil, fmt.Errorf("haldriver: render pass %q: attachment %d out of range", desc.Label, idx)
		}
	}
	rp := &renderPass{desc: *desc}
	rp.desc.Attachments = append([]driver.AttachmentDesc(nil), desc.Attachments...)
	rp.desc.Subpass.Color = append([]int(nil), desc.Subpass.Color...)
	return rp, nil
}

// CreateFramebuffer binds the views of desc to its pass.
func (c *Context) CreateFramebuffer(desc *driver.FramebufferDesc) (driver.Framebuffer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	rp, ok := desc.Pass.(*renderPass)
	if !ok {
		return nil, ErrForeignHandle
	}
	if len(desc.Attachments) != len(rp.desc.Attachments) {
		return nil, fmt.Errorf("haldriver: framebuffer %q: %d views for %d attachments",
			desc.Label, len(desc.Attachments), len(rp.desc.Attachments))
	}
	fb := &framebuffer{pass: rp, width: desc.Width, hgt: desc.Height}
	for _, a := range desc.Attachments {
		v, ok := a.(*imageView)
		if !ok {
			return nil, ErrForeignHandle
		}
		fb.views = append(fb.views, v)
	}
	return fb, nil
}

// CreateSemaphore creates a fence-backed semaphore.
func (c *Context) CreateSemaphore() (driver.Semaphore, error) {
	if c.closed {
		return nil, ErrClosed
	}
	f, err := c.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("haldriver: create fence: %w", err)
	}
	return &semaphore{ctx: c, fence: f}, nil
}

// SupportsDepthStencil reports whether the adapter can render to format.
func (c *Context) SupportsDepthStencil(format gputypes.TextureFormat) bool {
	if c.adapter == nil || !format.IsDepthStencil() {
		return false
	}
	caps := c.adapter.TextureFormatCapabilities(format)
	return caps.Flags&hal.TextureFormatCapabilityRenderAttachment != 0
}

func halAspect(a driver.Aspect) gputypes.TextureAspect {
	switch a {
	case driver.AspectDepth:
		return gputypes.TextureAspectDepthOnly
	case driver.AspectStencil:
		return gputypes.TextureAspectStencilOnly
	default:
		return gputypes.TextureAspectAll
	}
}

func bytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatDepth32FloatStencil8:
		return 5
	default:
		return 4
	}
}

// Package swapchain creates and destroys the chain of presentable images of
// a window together with its framebuffers and shared depth buffer.
package swapchain

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
	"github.com/gogpu/present/internal/renderpass"
	"github.com/gogpu/present/internal/resource"
)

// Errors.
var (
	// ErrExists is returned by Create when a swapchain is already live.
	ErrExists = errors.New("swapchain: already created")

	// ErrNoPass is returned by Create without a render pass.
	ErrNoPass = errors.New("swapchain: no render pass")

	// ErrZeroExtent is returned by Create for an empty extent.
	ErrZeroExtent = errors.New("swapchain: zero extent")
)

// Usage is the usage of every swapchain image. CopyDst covers the explicit
// clear of an image whose contents are undefined.
const Usage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst

// Config describes the swapchain to create.
type Config struct {
	Surface driver.Surface
	Extent  driver.Extent

	// BackBuffers is the requested number of back buffers. One more image
	// is requested for the front buffer.
	BackBuffers int

	Color driver.SurfaceFormat

	// Depth is gputypes.TextureFormatUndefined for no depth buffer.
	Depth gputypes.TextureFormat

	// Pass is the render pass every framebuffer is built against.
	Pass *renderpass.Pass

	// SyncVideo restricts presentation to Fifo.
	SyncVideo bool
}

// Buffer is one swap image and its framebuffer.
type Buffer struct {
	Image       *resource.Image
	Framebuffer driver.Framebuffer

	// Generation is the generation of the pass the framebuffer was built
	// against.
	Generation uint64

	pass *renderpass.Pass
}

// Manager owns the swapchain of one window.
//
// Destroy must only be called once the queue is idle; the manager does not
// wait itself because only the frame controller knows what was submitted.
type Manager struct {
	ctx    driver.Context
	passes *renderpass.Manager

	handle  driver.Swapchain
	buffers []*Buffer
	depth   *resource.Image

	extent      driver.Extent
	format      driver.SurfaceFormat
	mode        gputypes.PresentMode
	backBuffers int
	imageIndex  uint32
	live        int
}

// NewManager returns a manager creating resources through ctx. Framebuffer
// references are reported to passes.
func NewManager(ctx driver.Context, passes *renderpass.Manager) *Manager {
	return &Manager{ctx: ctx, passes: passes}
}

// Created reports whether a swapchain is live.
func (m *Manager) Created() bool { return m.handle != nil }

// Handle returns the driver swapchain, or nil.
func (m *Manager) Handle() driver.Swapchain { return m.handle }

// Buffers returns the swap buffers in engine index order.
func (m *Manager) Buffers() []*Buffer { return m.buffers }

// Len returns the number of swap buffers.
func (m *Manager) Len() int { return len(m.buffers) }

// Depth returns the depth buffer, or nil.
func (m *Manager) Depth() *resource.Image { return m.depth }

// Extent returns the size the swapchain was created with.
func (m *Manager) Extent() driver.Extent { return m.extent }

// Format returns the surface format of the swap images.
func (m *Manager) Format() driver.SurfaceFormat { return m.format }

// PresentMode returns the selected present mode.
func (m *Manager) PresentMode() gputypes.PresentMode { return m.mode }

// BackBuffers returns the number of back buffers actually created.
func (m *Manager) BackBuffers() int { return m.backBuffers }

// ImageIndex returns the index of the last acquired image.
func (m *Manager) ImageIndex() uint32 { return m.imageIndex }

// SetImageIndex records the index returned by the presentation engine.
func (m *Manager) SetImageIndex(i uint32) { m.imageIndex = i }

// LiveImages returns the number of image resources owned by the manager,
// swap images and depth buffer included.
func (m *Manager) LiveImages() int { return m.live }

// Create builds the swapchain, its image views, the depth buffer and one
// framebuffer per image. On failure everything created so far is released
// and the manager is left empty.
func (m *Manager) Create(cfg Config) error {
	if m.handle != nil {
		return ErrExists
	}
	if cfg.Pass == nil {
		return ErrNoPass
	}
	if cfg.Extent.Width == 0 || cfg.Extent.Height == 0 {
		return ErrZeroExtent
	}
	if err := m.create(cfg); err != nil {
		m.Destroy()
		return err
	}
	slogger().Info("swapchain: created",
		"extent", m.extent.String(),
		"images", len(m.buffers),
		"format", m.format.Format.String(),
		"mode", m.mode.String(),
		"depth", cfg.Depth.String())
	return nil
}

func (m *Manager) create(cfg Config) error {
	pr := m.ctx.Presenter()
	dev := m.ctx.Device()

	caps, err := pr.SurfaceCapabilities(cfg.Surface)
	if err != nil {
		return fmt.Errorf("swapchain: surface capabilities: %w", err)
	}
	count := ChooseImageCount(cfg.BackBuffers, caps)

	modes, err := pr.SurfacePresentModes(cfg.Surface)
	if err != nil {
		return fmt.Errorf("swapchain: present modes: %w", err)
	}
	mode := ChoosePresentMode(modes, cfg.SyncVideo)

	sc, err := pr.CreateSwapchain(&driver.SwapchainDesc{
		Label:       "present_swapchain",
		Surface:     cfg.Surface,
		Format:      cfg.Color,
		Extent:      cfg.Extent,
		ImageCount:  count,
		PresentMode: mode,
		Usage:       Usage,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
		Clipped:     true,
	})
	if err != nil {
		return fmt.Errorf("swapchain: create: %w", err)
	}
	m.handle = sc
	m.extent = cfg.Extent
	m.format = cfg.Color
	m.mode = mode

	images, err := pr.SwapchainImages(sc)
	if err != nil {
		return fmt.Errorf("swapchain: images: %w", err)
	}
	m.buffers = make([]*Buffer, 0, len(images))
	for i, h := range images {
		img := resource.New(h, cfg.Color.Format, cfg.Extent, driver.AspectColor)
		m.buffers = append(m.buffers, &Buffer{Image: img})
		m.live++

		img.View, err = dev.CreateImageView(h, &driver.ImageViewDesc{
			Label:       fmt.Sprintf("present_swap_view_%d", i),
			Format:      cfg.Color.Format,
			Aspect:      driver.AspectColor,
			MipLevels:   1,
			ArrayLayers: 1,
		})
		if err != nil {
			return fmt.Errorf("swapchain: image view %d: %w", i, err)
		}
	}

	if cfg.Depth != gputypes.TextureFormatUndefined {
		if err := m.createDepth(dev, cfg); err != nil {
			return err
		}
	}

	for i, b := range m.buffers {
		atts := []driver.ImageView{b.Image.View}
		if m.depth != nil {
			atts = append(atts, m.depth.View)
		}
		fb, err := dev.CreateFramebuffer(&driver.FramebufferDesc{
			Label:       fmt.Sprintf("present_framebuffer_%d", i),
			Pass:        cfg.Pass.Handle,
			Attachments: atts,
			Width:       cfg.Extent.Width,
			Height:      cfg.Extent.Height,
			Layers:      1,
		})
		if err != nil {
			return fmt.Errorf("swapchain: framebuffer %d: %w", i, err)
		}
		b.Framebuffer = fb
		b.Generation = cfg.Pass.Generation
		b.pass = cfg.Pass
		m.passes.Acquire(cfg.Pass)
	}

	m.backBuffers = len(images) - 1
	return nil
}

// createDepth allocates the shared depth/stencil image, binds memory and
// creates its view.
func (m *Manager) createDepth(dev driver.Device, cfg Config) error {
	h, err := dev.CreateImage(&driver.ImageDesc{
		Label:       "present_depth",
		Format:      cfg.Depth,
		Extent:      cfg.Extent,
		MipLevels:   1,
		ArrayLayers: 1,
		Usage:       gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("swapchain: depth image: %w", err)
	}
	img := resource.New(h, cfg.Depth, cfg.Extent, resource.AspectOf(cfg.Depth))
	m.depth = img
	m.live++

	req := dev.ImageMemoryRequirements(h)
	types := dev.MemoryTypes()
	idx, ok := FindMemoryType(types, req.TypeBits, driver.MemDeviceLocal)
	if !ok {
		idx, ok = FindMemoryType(types, req.TypeBits, 0)
	}
	if !ok {
		return fmt.Errorf("swapchain: depth memory (type bits %#x): %w", req.TypeBits, driver.ErrNoMemoryType)
	}

	mem, err := dev.AllocateMemory(req.Size, idx)
	if err != nil {
		return fmt.Errorf("swapchain: depth memory: %w", err)
	}
	img.Memory = mem
	if err := dev.BindImageMemory(h, mem); err != nil {
		return fmt.Errorf("swapchain: bind depth memory: %w", err)
	}

	img.View, err = dev.CreateImageView(h, &driver.ImageViewDesc{
		Label:       "present_depth_view",
		Format:      cfg.Depth,
		Aspect:      img.Aspect,
		MipLevels:   1,
		ArrayLayers: 1,
	})
	if err != nil {
		return fmt.Errorf("swapchain: depth view: %w", err)
	}
	return nil
}

// Destroy releases, in order: the command recording, each framebuffer and
// image view, the depth view, image and memory, and the swapchain itself.
// The image index is reset to 0. Destroy on an empty manager is a no-op
// apart from the reset.
func (m *Manager) Destroy() {
	if err := m.ctx.Commands().Reset(); err != nil {
		slogger().Warn("swapchain: reset command recording", "err", err)
	}

	for _, b := range m.buffers {
		if b.Framebuffer != nil {
			b.Framebuffer.Destroy()
			b.Framebuffer = nil
			m.passes.Release(b.pass)
			b.pass = nil
		}
		b.Image.Destroy()
		m.live--
	}
	m.buffers = nil

	if m.depth != nil {
		if m.depth.Memory == nil && m.depth.Handle != nil {
			// Image created but memory never allocated.
			if m.depth.View != nil {
				m.depth.View.Destroy()
				m.depth.View = nil
			}
			m.depth.Handle.Destroy()
			m.depth.Handle = nil
		}
		m.depth.Destroy()
		m.depth = nil
		m.live--
	}

	if m.handle != nil {
		m.handle.Destroy()
		m.handle = nil
	}
	m.imageIndex = 0
	m.extent = driver.Extent{}
}

// ChooseImageCount returns backBuffers+1 clamped to the surface limits.
// A MaxImageCount of 0 means unbounded.
func ChooseImageCount(backBuffers int, caps driver.SurfaceCapabilities) uint32 {
	n := uint32(1)
	if backBuffers > 0 {
		n = uint32(backBuffers) + 1 //nolint:gosec // back buffer counts are small
	}
	if n < caps.MinImageCount {
		n = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

// ChoosePresentMode picks Mailbox, then Immediate, then Fifo. With
// syncVideo only Fifo is used.
func ChoosePresentMode(modes []gputypes.PresentMode, syncVideo bool) gputypes.PresentMode {
	if syncVideo {
		return gputypes.PresentModeFifo
	}
	mode := gputypes.PresentModeFifo
	for _, m := range modes {
		if m == gputypes.PresentModeMailbox {
			return m
		}
		if m == gputypes.PresentModeImmediate {
			mode = m
		}
	}
	return mode
}

// FindMemoryType returns the first memory type allowed by typeBits that has
// every flag in want.
func FindMemoryType(types []driver.MemoryType, typeBits uint32, want driver.MemoryFlags) (uint32, bool) {
	for i, t := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) != 0 && t.Flags&want == want {
			return uint32(i), true //nolint:gosec // i < 32
		}
	}
	return 0, false
}

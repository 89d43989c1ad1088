package present

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
	"github.com/gogpu/present/internal/format"
	"github.com/gogpu/present/internal/renderpass"
	"github.com/gogpu/present/internal/swapchain"
)

// Window presents frames to a Host through an explicit-barrier device.
//
// A Window owns its surface, swapchain, render pass and image resources;
// nothing is shared with other windows except the device context. All
// methods must be called from one draw goroutine.
type Window struct {
	host Host
	opts options

	ctx     driver.Context
	surface driver.Surface
	passes  *renderpass.Manager
	chain   *swapchain.Manager
	formats format.Result
	props   FramebufferProperties

	clearColor   gputypes.Color
	clearDepth   float32
	clearStencil uint32
	clearMask    ClearMask

	state     FrameState
	mode      FrameMode
	inFrame   bool
	frame     uint64
	acquired  bool
	semaphore driver.Semaphore
	pending   []driver.Semaphore
	recreate  bool
	cubeFace  int
	stats     Stats
}

var _ GraphicsWindow = (*Window)(nil)

// NewWindow returns a closed window presenting to host.
//
// Color and depth clears are active by default, clearing to opaque black
// and depth 1.
func NewWindow(host Host, opts ...Option) *Window {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Window{
		host:       host,
		opts:       o,
		props:      o.props,
		clearColor: gputypes.Color{A: 1},
		clearDepth: 1,
		clearMask:  ClearColor | ClearDepth,
		cubeFace:   -1,
	}
}

// Open binds the window to the device behind provider, negotiates formats,
// builds the render pass and creates the swapchain at the host's size.
//
// The provider's Device must implement driver.Context, or the provider
// itself must implement driver.ContextProvider. The binding is resolved
// once here and held until Close.
//
// On failure everything created is released and the window stays closed.
func (w *Window) Open(provider gpucontext.DeviceProvider) error {
	if w.ctx != nil {
		return ErrAlreadyOpen
	}
	ctx, err := bindDevice(provider)
	if err != nil {
		return err
	}
	if err := w.open(ctx); err != nil {
		w.release()
		return fmt.Errorf("present: open: %w", err)
	}

	w.ctx = ctx
	w.state = StateIdle
	bindContext(ctx)
	slogger().Info("present: window opened",
		"extent", w.chain.Extent().String(),
		"color", w.formats.Color.Format.String(),
		"colorspace", w.formats.Color.ColorSpace.String(),
		"depth", w.formats.Depth.String(),
		"mode", w.chain.PresentMode().String(),
		"images", w.chain.Len())
	return nil
}

// bindDevice resolves the driver context of provider.
func bindDevice(provider gpucontext.DeviceProvider) (driver.Context, error) {
	if provider == nil {
		return nil, ErrNoDevice
	}
	if c, ok := provider.Device().(driver.Context); ok {
		return c, nil
	}
	if cp, ok := provider.(driver.ContextProvider); ok {
		if c := cp.DriverContext(); c != nil {
			return c, nil
		}
	}
	return nil, ErrUnsupportedDevice
}

func (w *Window) open(ctx driver.Context) error {
	pr := ctx.Presenter()
	dev := ctx.Device()

	surface, err := pr.CreateSurface(w.host.NativeSurface())
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	w.surface = surface

	formats, err := pr.SurfaceFormats(surface)
	if err != nil {
		return fmt.Errorf("surface formats: %w", err)
	}
	res, err := format.Negotiate(formats, dev, format.Request{
		SRGB:        w.opts.props.SRGBColor,
		DepthBits:   w.opts.props.DepthBits,
		StencilBits: w.opts.props.StencilBits,
		FloatDepth:  w.opts.props.FloatDepth,
	})
	if err != nil {
		return err
	}
	w.formats = res

	w.passes = renderpass.NewManager(dev, w.opts.reclaim)
	if _, err := w.passes.Build(res.Color.Format, res.Depth, w.clearMask); err != nil {
		return err
	}

	w.chain = swapchain.NewManager(ctx, w.passes)
	if err := w.chain.Create(w.swapchainConfig()); err != nil {
		return err
	}
	w.updateProperties()
	return nil
}

// release tears down whatever open or Close left behind.
func (w *Window) release() {
	if w.chain != nil {
		w.chain.Destroy()
		w.chain = nil
	}
	if w.passes != nil {
		w.passes.Close()
		w.passes = nil
	}
	if w.semaphore != nil {
		w.semaphore.Destroy()
		w.semaphore = nil
	}
	for _, s := range w.pending {
		s.Destroy()
	}
	w.pending = nil
	if w.surface != nil {
		w.surface.Destroy()
		w.surface = nil
	}
	w.acquired = false
	w.inFrame = false
	w.recreate = false
	w.state = StateIdle
}

// Close waits for the queue to go idle, then destroys the swapchain, the
// render passes and the surface and releases the device binding. Close on
// a closed window is a no-op.
func (w *Window) Close() {
	if w.ctx == nil {
		return
	}
	w.waitIdle()
	w.release()
	unbindContext(w.ctx)
	w.ctx = nil
	slogger().Info("present: window closed")
}

// Clear is reserved. Clearing happens when the render pass begins in
// BeginFrame.
func (w *Window) Clear() {}

// IsOpen reports whether the window is bound to a device.
func (w *Window) IsOpen() bool { return w.ctx != nil }

// State returns the position in the frame cycle.
func (w *Window) State() FrameState { return w.state }

// Properties returns the framebuffer properties. After Open they hold the
// negotiated values.
func (w *Window) Properties() FramebufferProperties { return w.props }

// ColorFormat returns the negotiated surface format.
func (w *Window) ColorFormat() driver.SurfaceFormat { return w.formats.Color }

// DepthFormat returns the negotiated depth/stencil format, or
// gputypes.TextureFormatUndefined.
func (w *Window) DepthFormat() gputypes.TextureFormat { return w.formats.Depth }

// PresentMode returns the present mode of the current swapchain.
func (w *Window) PresentMode() gputypes.PresentMode {
	if w.chain == nil {
		return gputypes.PresentModeUndefined
	}
	return w.chain.PresentMode()
}

// Extent returns the size of the current swapchain.
func (w *Window) Extent() driver.Extent {
	if w.chain == nil {
		return driver.Extent{}
	}
	return w.chain.Extent()
}

// Buffers returns the number of swap images.
func (w *Window) Buffers() int {
	if w.chain == nil {
		return 0
	}
	return w.chain.Len()
}

// ImageIndex returns the index of the last acquired swap image.
func (w *Window) ImageIndex() uint32 {
	if w.chain == nil {
		return 0
	}
	return w.chain.ImageIndex()
}

// CurrentImage returns the swap image of the frame in flight, or nil.
func (w *Window) CurrentImage() *ImageResource {
	if !w.acquired {
		return nil
	}
	return w.chain.Buffers()[w.chain.ImageIndex()].Image
}

// DepthImage returns the depth buffer, or nil.
func (w *Window) DepthImage() *ImageResource {
	if w.chain == nil {
		return nil
	}
	return w.chain.Depth()
}

// Stats returns the frame counters.
func (w *Window) Stats() Stats { return w.stats }

// RenderPassGeneration returns the generation of the current render pass.
func (w *Window) RenderPassGeneration() uint64 {
	if w.passes == nil {
		return 0
	}
	return w.passes.Generation()
}

// RetiredRenderPasses returns how many superseded render passes are alive.
func (w *Window) RetiredRenderPasses() int {
	if w.passes == nil {
		return 0
	}
	return w.passes.Retired()
}

// RenderPass returns the current driver render pass, for pipeline creation.
func (w *Window) RenderPass() driver.RenderPass {
	if w.passes == nil || w.passes.Current() == nil {
		return nil
	}
	return w.passes.Current().Handle
}

// PinRenderPass marks the current render pass as named by cached pipeline
// state and returns the function that drops the pin. A pinned pass is never
// destroyed, even after it is superseded or the window is closed.
func (w *Window) PinRenderPass() (unpin func()) {
	if w.passes == nil || w.passes.Current() == nil {
		return func() {}
	}
	m, p := w.passes, w.passes.Current()
	m.Pin(p)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		m.Unpin(p)
	}
}

// SelectCubeMapFace selects the cube map face the next frame renders to.
// The selection is cleared at the end of every rendered frame.
func (w *Window) SelectCubeMapFace(face int) { w.cubeFace = face }

// CubeMapFace returns the selected cube map face, or -1.
func (w *Window) CubeMapFace() int { return w.cubeFace }

// SetClearColor sets the color clear value.
func (w *Window) SetClearColor(c gputypes.Color) { w.clearColor = c }

// SetClearDepth sets the depth clear value.
func (w *Window) SetClearDepth(d float32) { w.clearDepth = d }

// SetClearStencil sets the stencil clear value.
func (w *Window) SetClearStencil(s uint32) { w.clearStencil = s }

// SetClearColorActive enables or disables the color clear. The render pass
// is rebuilt on the next frame when the clear set changes.
func (w *Window) SetClearColorActive(on bool) { w.setClear(ClearColor, on) }

// SetClearDepthActive enables or disables the depth clear.
func (w *Window) SetClearDepthActive(on bool) { w.setClear(ClearDepth, on) }

// SetClearStencilActive enables or disables the stencil clear.
func (w *Window) SetClearStencilActive(on bool) { w.setClear(ClearStencil, on) }

// ClearMask returns the active clears.
func (w *Window) ClearMask() ClearMask { return w.clearMask }

func (w *Window) setClear(bit ClearMask, on bool) {
	if on {
		w.clearMask |= bit
	} else {
		w.clearMask &^= bit
	}
}

func (w *Window) hostExtent() driver.Extent {
	width, height := w.host.Size()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return driver.Extent{Width: uint32(width), Height: uint32(height)} //nolint:gosec // clamped to >= 0
}

func (w *Window) swapchainConfig() swapchain.Config {
	return swapchain.Config{
		Surface:     w.surface,
		Extent:      w.hostExtent(),
		BackBuffers: w.props.BackBuffers,
		Color:       w.formats.Color,
		Depth:       w.formats.Depth,
		Pass:        w.passes.Current(),
		SyncVideo:   w.opts.syncVideo,
	}
}

func (w *Window) updateProperties() {
	w.props.SRGBColor = w.formats.SRGB
	w.props.ColorBits = w.formats.ColorBits
	w.props.AlphaBits = w.formats.AlphaBits
	w.props.DepthBits = w.formats.DepthBits
	w.props.StencilBits = w.formats.StencilBits
	w.props.FloatDepth = w.formats.FloatDepth
	w.props.BackBuffers = w.chain.BackBuffers()
}

// waitIdle blocks until the queue is idle and releases semaphores of
// aborted presents.
func (w *Window) waitIdle() {
	w.stats.QueueWaits++
	if err := w.ctx.WaitIdle(); err != nil {
		slogger().Warn("present: wait idle", "err", err)
	}
	for _, s := range w.pending {
		s.Destroy()
	}
	w.pending = nil
}

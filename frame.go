package present

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// Stage and access scopes of the attachments inside the render pass.
const (
	colorStage   = driver.SColorOutput
	colorAccess  = driver.AColorWrite
	depthStage   = driver.SEarlyFragmentTests | driver.SLateFragmentTests
	depthAccess  = driver.ADSWrite
	bothDepthClr = ClearDepth | ClearStencil
)

// BeginFrame starts a frame and reports whether it should be drawn.
//
// It returns false without side effects when the window is closed or not
// exposed. Otherwise it first rebuilds the render pass if the clear set
// changed and recreates the swapchain if the host was resized, waiting for
// the queue to go idle before either. A failed recreation skips the frame;
// the next BeginFrame retries.
//
// For FrameRender it then acquires the next swap image, which blocks until
// one is available, prepares the attachments and begins the render pass.
// It panics if the presentation engine returns an image index outside the
// swapchain, or if the previous render frame was never flipped.
func (w *Window) BeginFrame(mode FrameMode) bool {
	if w.ctx == nil {
		return false
	}
	if w.inFrame {
		panic("present: BeginFrame called before EndFrame")
	}
	if w.acquired {
		panic("present: BeginFrame called before EndFlip")
	}
	if !w.opts.unexposedDraw && !w.host.Exposed() {
		w.stats.FramesSkipped++
		return false
	}

	if w.passes.NeedsRebuild(w.clearMask) {
		w.waitIdle()
		if _, err := w.passes.Build(w.formats.Color.Format, w.formats.Depth, w.clearMask); err != nil {
			slogger().Error("present: rebuild render pass", "err", err)
			w.stats.FramesSkipped++
			return false
		}
		w.stats.RenderPassRebuilds++
	}

	if w.recreate || w.hostExtent() != w.chain.Extent() {
		w.waitIdle()
		w.chain.Destroy()
		if err := w.chain.Create(w.swapchainConfig()); err != nil {
			slogger().Warn("present: recreate swapchain", "extent", w.hostExtent().String(), "err", err)
			w.stats.FramesSkipped++
			return false
		}
		w.recreate = false
		w.props.BackBuffers = w.chain.BackBuffers()
		w.stats.SwapchainRecreations++
	}

	if err := w.ctx.BeginFrame(); err != nil {
		slogger().Error("present: begin command recording", "err", err)
		w.stats.FramesSkipped++
		return false
	}
	w.frame++
	w.inFrame = true
	w.mode = mode
	w.stats.FramesBegun++

	if mode != FrameRender {
		return true
	}

	if err := w.acquire(); err != nil {
		if errors.Is(err, driver.ErrAcquireStalled) {
			slogger().Error("present: acquire stalled", "frame", w.frame, "err", err)
		} else {
			slogger().Warn("present: acquire", "err", err)
		}
		w.abortFrame()
		return false
	}
	w.beginRenderPass()
	return true
}

// acquire creates the frame semaphore and acquires the next swap image.
func (w *Window) acquire() error {
	w.state = StateAcquiring

	sem, err := w.ctx.Device().CreateSemaphore()
	if err != nil {
		return fmt.Errorf("create semaphore: %w", err)
	}
	idx, err := w.ctx.Presenter().AcquireNextImage(w.chain.Handle(), sem)
	if err != nil {
		sem.Destroy()
		w.recreate = true
		return fmt.Errorf("acquire next image: %w", err)
	}
	if int(idx) >= w.chain.Len() {
		sem.Destroy()
		panic(fmt.Sprintf("present: acquired image index %d out of range [0, %d)", idx, w.chain.Len()))
	}

	w.semaphore = sem
	w.acquired = true
	w.chain.SetImageIndex(idx)
	slogger().Debug("present: acquired image", "frame", w.frame, "index", idx)
	return nil
}

// beginRenderPass brings the attachments into their in-pass layouts and
// begins the render pass on the acquired image's framebuffer.
func (w *Window) beginRenderPass() {
	cmd := w.ctx.Commands()
	family := w.ctx.QueueFamilyIndex()
	buf := w.chain.Buffers()[w.chain.ImageIndex()]
	color := buf.Image
	if w.passes.Stale(buf.Generation) {
		slogger().Debug("present: framebuffer built against an older render pass",
			"index", w.chain.ImageIndex(), "generation", buf.Generation, "current", w.passes.Generation())
	}

	clears := []driver.ClearValue{{Color: w.clearColor}}
	if w.clearMask&ClearColor != 0 {
		// The pass clears from an undefined layout.
		color.SetState(driver.LColorAttachment, colorStage, colorAccess)
	} else {
		if color.Layout == driver.LUndefined {
			color.ClearColor(cmd, family, w.clearColor)
		}
		color.Transition(cmd, family, driver.LColorAttachment, colorStage, colorAccess)
	}

	if depth := w.chain.Depth(); depth != nil {
		clears = append(clears, driver.ClearValue{Depth: w.clearDepth, Stencil: w.clearStencil})
		if w.clearMask&bothDepthClr == bothDepthClr {
			depth.SetState(driver.LDepthStencilAttachment, depthStage, depthAccess)
		} else {
			depth.Transition(cmd, family, driver.LDepthStencilAttachment, depthStage, depthAccess)
		}
	}

	ext := w.chain.Extent()
	cmd.BeginRenderPass(&driver.RenderPassBegin{
		Pass:        w.passes.Current().Handle,
		Framebuffer: buf.Framebuffer,
		Area:        driver.Rect{Width: ext.Width, Height: ext.Height},
		ClearValues: clears,
	})
	w.state = StateRenderPassActive
}

// abortFrame closes a frame that could not acquire an image.
func (w *Window) abortFrame() {
	if err := w.ctx.EndFrame(w.frame); err != nil {
		slogger().Error("present: submit aborted frame", "err", err)
	}
	w.inFrame = false
	w.acquired = false
	w.state = StateIdle
	w.stats.FramesSkipped++
}

// EndFrame finishes the frame started by BeginFrame. mode must be the mode
// the frame was begun with.
//
// For FrameRender it ends the render pass, hands the color image to the
// texture copier, submits the recording and leaves the window waiting for
// EndFlip. The cube map face selection is cleared.
func (w *Window) EndFrame(mode FrameMode) {
	if w.ctx == nil {
		return
	}
	if !w.inFrame {
		panic("present: EndFrame without BeginFrame")
	}
	if mode != w.mode {
		panic(fmt.Sprintf("present: EndFrame(%s) for a %s frame", mode, w.mode))
	}

	render := mode == FrameRender && w.acquired
	if render {
		cmd := w.ctx.Commands()
		cmd.EndRenderPass()
		img := w.chain.Buffers()[w.chain.ImageIndex()].Image
		img.Layout = driver.LPresentSrc
		w.state = StateRenderPassEnded

		if c := w.opts.copier; c != nil {
			if err := c.CopyToTextures(cmd, img); err != nil {
				slogger().Warn("present: copy to textures", "err", err)
			}
		}
	}

	if err := w.ctx.EndFrame(w.frame); err != nil {
		slogger().Error("present: submit frame", "frame", w.frame, "err", err)
	}
	w.inFrame = false

	if render {
		w.state = StatePresenting
		w.cubeFace = -1
		return
	}
	w.state = StateIdle
}

// BeginFlip is a hook for synchronizing flips across windows. It does not
// block and has no effect.
func (w *Window) BeginFlip() {}

// ReadyFlip is a hook for synchronizing flips across windows. It does not
// block and has no effect.
func (w *Window) ReadyFlip() {}

// EndFlip presents the frame submitted by EndFrame.
//
// Out-of-date and suboptimal surfaces are logged and the frame counts as
// presented; the swapchain is recreated on the next frame. A present error
// is logged and EndFlip returns without waiting for the queue. On success
// EndFlip waits for the queue to go idle before releasing the frame
// semaphore.
//
// EndFlip panics when no image was acquired or the image is not in the
// present layout.
func (w *Window) EndFlip() {
	if w.ctx == nil {
		return
	}
	if !w.acquired {
		panic("present: EndFlip without an acquired image")
	}
	idx := w.chain.ImageIndex()
	img := w.chain.Buffers()[idx].Image
	if img.Layout != driver.LPresentSrc {
		panic(fmt.Sprintf("present: EndFlip with image %d in layout %s", idx, img.Layout))
	}

	w.acquired = false
	w.state = StateIdle
	sem := w.semaphore
	w.semaphore = nil

	status, err := w.ctx.Presenter().QueuePresent(w.chain.Handle(), idx, sem)
	if err != nil {
		slogger().Error("present: queue present", "index", idx, "err", err)
		w.pending = append(w.pending, sem)
		w.recreate = true
		return
	}
	switch status {
	case gputypes.SurfaceStatusOutdated, gputypes.SurfaceStatusLost:
		slogger().Warn("present: surface out of date", "status", status.String())
		w.stats.PresentAnomalies++
		w.recreate = true
	case gputypes.SurfaceStatusSuboptimal:
		slogger().Warn("present: suboptimal swapchain", "status", status.String())
		w.stats.PresentAnomalies++
	}
	w.stats.FramesPresented++

	w.waitIdle()
	sem.Destroy()
}

// RenderFrame runs one complete FrameRender cycle, calling draw while the
// render pass is active. It reports whether a frame was presented.
func (w *Window) RenderFrame(draw func(cmd driver.CmdBuffer, img *ImageResource)) bool {
	if !w.BeginFrame(FrameRender) {
		return false
	}
	if draw != nil {
		draw(w.ctx.Commands(), w.CurrentImage())
	}
	w.EndFrame(FrameRender)
	w.BeginFlip()
	w.ReadyFlip()
	before := w.stats.FramesPresented
	w.EndFlip()
	return w.stats.FramesPresented > before
}

// Package present manages the swapchain, render pass and frame lifecycle of
// a window drawn with an explicit-barrier GPU API.
//
// # Overview
//
// A [Window] couples three lifetimes that change independently: the host
// window surface, which the OS may resize at any time; the swapchain images,
// which are recreated on resize or when the clear configuration changes;
// and the per-frame command recording, which must always reference a valid
// render pass and framebuffer.
//
// The window talks to the GPU only through the interfaces of package
// [github.com/gogpu/present/driver]. The driver/haldriver package provides
// them on top of gogpu/wgpu's HAL; driver/drivertest provides an in-memory
// fake.
//
// # Quick Start
//
//	ctx, err := haldriver.Open(haldriver.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	w := present.NewWindow(host)
//	if err := w.Open(ctx.Provider()); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Close()
//
//	for running {
//		w.RenderFrame(func(cmd driver.CmdBuffer, img *present.ImageResource) {
//			// record draws
//		})
//	}
//
// # Frame Protocol
//
// RenderFrame is shorthand for the full protocol:
//
//	if w.BeginFrame(present.FrameRender) {
//		// draw
//		w.EndFrame(present.FrameRender)
//		w.BeginFlip()
//		w.ReadyFlip()
//		w.EndFlip()
//	}
//
// BeginFrame rebuilds the render pass when the clear mask changed, recreates
// the swapchain when the host was resized or the last present reported an
// out-of-date surface, acquires the next image and begins the render pass.
// EndFrame ends the pass and submits. EndFlip presents and waits for the
// queue. BeginFrame returns false when the frame must be skipped; the caller
// then skips the rest of the protocol.
//
// # Clear Configuration
//
// Color and depth are cleared by the render pass by default. Changing the
// clear mask with SetClearColorActive, SetClearDepthActive or
// SetClearStencilActive takes effect on the next BeginFrame, which rebuilds
// the render pass. Framebuffers built against the previous pass stay valid
// because the attachment formats do not change.
//
// # Logging
//
// The package is silent by default. Use [SetLogger] to route its messages
// to a [log/slog] logger; the logger is forwarded to driver contexts that
// accept one.
//
// # Concurrency
//
// A Window and its driver context must be used from a single goroutine.
// [SetLogger] and [Logger] are safe for concurrent use.
package present

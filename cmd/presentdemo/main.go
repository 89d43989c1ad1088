// Command presentdemo renders frames through a present.Window on a hal
// backend and prints the frame statistics.
//
// Without a native window it runs headless; the noop backend exercises the
// full frame lifecycle anywhere:
//
//	presentdemo -backend noop -frames 120 -resize-at 60 -v
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/present"
	"github.com/gogpu/present/driver"
	"github.com/gogpu/present/driver/haldriver"
)

// host is a headless present.Host.
type host struct {
	gpucontext.NullWindowProvider
	native driver.NativeSurface
}

func (h *host) NativeSurface() driver.NativeSurface { return h.native }
func (h *host) Exposed() bool                       { return true }

func main() {
	var (
		backend  = flag.String("backend", "", "hal backend (empty picks the best available)")
		frames   = flag.Int("frames", 60, "number of frames to render")
		width    = flag.Int("width", 800, "window width")
		height   = flag.Int("height", 600, "window height")
		resizeAt = flag.Int("resize-at", 0, "frame at which the window doubles in size (0 disables)")
		srgb     = flag.Bool("srgb", false, "request an sRGB color format")
		depth    = flag.Int("depth", 24, "depth bits")
		stencil  = flag.Int("stencil", 8, "stencil bits")
		noClear  = flag.Bool("no-clear", false, "load the color attachment instead of clearing it")
		vsync    = flag.Bool("vsync", false, "wait for vertical blank")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	present.SetLogger(logger)
	haldriver.SetLogger(logger)

	var (
		ctx *haldriver.Context
		err error
	)
	if *backend == "" {
		ctx, err = haldriver.Open(haldriver.Config{Label: "presentdemo"})
	} else {
		ctx, err = haldriver.OpenByName(*backend, haldriver.Config{Label: "presentdemo"})
	}
	if err != nil {
		log.Fatalf("open backend: %v (available: %v)", err, haldriver.Available())
	}
	defer ctx.Close()

	h := &host{NullWindowProvider: gpucontext.NullWindowProvider{W: *width, H: *height}}
	w := present.NewWindow(h,
		present.WithProperties(present.FramebufferProperties{
			SRGBColor:   *srgb,
			DepthBits:   *depth,
			StencilBits: *stencil,
			BackBuffers: 2,
		}),
		present.WithSyncVideo(*vsync),
	)
	if err := w.Open(ctx.Provider()); err != nil {
		log.Fatalf("open window: %v", err)
	}
	defer w.Close()
	w.SetClearColor(gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1})
	w.SetClearColorActive(!*noClear)

	device, _ := ctx.HAL()
	tri, err := newTriangle(device, ctx.Backend(), w.ColorFormat().Format, w.DepthFormat())
	if err != nil {
		logger.Warn("presentdemo: triangle disabled, clearing only", "err", err)
	} else {
		defer tri.destroy()
	}

	for i := 1; i <= *frames; i++ {
		if *resizeAt > 0 && i == *resizeAt {
			h.W, h.H = *width*2, *height*2
		}
		w.RenderFrame(func(driver.CmdBuffer, *present.ImageResource) {
			if tri != nil {
				tri.draw(ctx.RenderPass())
			}
		})
	}

	info := ctx.AdapterInfo()
	st := w.Stats()
	fmt.Printf("backend:       %s (%s)\n", ctx.Backend(), info.Name)
	fmt.Printf("format:        %s / %s\n", w.ColorFormat().Format, w.DepthFormat())
	fmt.Printf("present mode:  %s, %d images\n", w.PresentMode(), w.Buffers())
	fmt.Printf("frames:        %d begun, %d presented, %d skipped\n", st.FramesBegun, st.FramesPresented, st.FramesSkipped)
	fmt.Printf("recreations:   %d swapchain, %d render pass\n", st.SwapchainRecreations, st.RenderPassRebuilds)
	fmt.Printf("anomalies:     %d\n", st.PresentAnomalies)
	fmt.Printf("queue waits:   %d\n", st.QueueWaits)
}

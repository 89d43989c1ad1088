package swapchain

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
	"github.com/gogpu/present/driver/drivertest"
	"github.com/gogpu/present/internal/renderpass"
)

type fixture struct {
	f       *drivertest.Fake
	passes  *renderpass.Manager
	m       *Manager
	surface driver.Surface
	pass    *renderpass.Pass
}

func newFixture(t *testing.T, depth gputypes.TextureFormat) *fixture {
	t.Helper()
	f := drivertest.New()
	passes := renderpass.NewManager(f, false)
	pass, err := passes.Build(gputypes.TextureFormatBGRA8Unorm, depth, renderpass.ClearColor)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s, err := f.CreateSurface(driver.NativeSurface{})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	return &fixture{f: f, passes: passes, m: NewManager(f, passes), surface: s, pass: pass}
}

func (fx *fixture) config(w, h uint32, depth gputypes.TextureFormat) Config {
	return Config{
		Surface:     fx.surface,
		Extent:      driver.Extent{Width: w, Height: h},
		BackBuffers: 2,
		Color:       driver.SurfaceFormat{Format: gputypes.TextureFormatBGRA8Unorm},
		Depth:       depth,
		Pass:        fx.pass,
	}
}

func TestCreateDestroyRoundTrip(t *testing.T) {
	depth := gputypes.TextureFormatDepth24PlusStencil8
	fx := newFixture(t, depth)

	if err := fx.m.Create(fx.config(800, 600, depth)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := fx.m.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if got := fx.m.LiveImages(); got != 4 {
		t.Errorf("LiveImages() = %d, want 4 (3 swap + depth)", got)
	}
	if fx.pass.Refs() != 3 {
		t.Errorf("pass refs = %d, want 3", fx.pass.Refs())
	}
	if u := fx.f.Swapchains[0].Desc.Usage; u&gputypes.TextureUsageCopyDst == 0 || u&gputypes.TextureUsageRenderAttachment == 0 {
		t.Errorf("swapchain usage = %v, want attachment and copy destination", u)
	}
	for i, b := range fx.m.Buffers() {
		fb := b.Framebuffer.(*drivertest.Framebuffer)
		if fb.Desc.Pass != fx.pass.Handle {
			t.Errorf("framebuffer %d built against another pass", i)
		}
		if len(fb.Desc.Attachments) != 2 || fb.Desc.Attachments[1] != fx.m.Depth().View {
			t.Errorf("framebuffer %d does not share the depth view", i)
		}
		if fb.Desc.Width != 800 || fb.Desc.Height != 600 || fb.Desc.Layers != 1 {
			t.Errorf("framebuffer %d size = %dx%dx%d", i, fb.Desc.Width, fb.Desc.Height, fb.Desc.Layers)
		}
	}
	dv := fx.m.Depth().View.(*drivertest.ImageView)
	if dv.Desc.Aspect != driver.AspectDepth|driver.AspectStencil {
		t.Errorf("depth view aspect = %d, want depth|stencil", dv.Desc.Aspect)
	}

	fx.m.SetImageIndex(2)
	fx.m.Destroy()

	if got := fx.m.LiveImages(); got != 0 {
		t.Errorf("LiveImages() after Destroy = %d, want 0", got)
	}
	if got := fx.m.ImageIndex(); got != 0 {
		t.Errorf("ImageIndex() after Destroy = %d, want 0", got)
	}
	if fx.pass.Refs() != 0 {
		t.Errorf("pass refs after Destroy = %d, want 0", fx.pass.Refs())
	}
	for _, kind := range []string{
		drivertest.KindSwapchain, drivertest.KindSwapImage, drivertest.KindImage,
		drivertest.KindImageView, drivertest.KindMemory, drivertest.KindFramebuffer,
	} {
		if n := fx.f.Live(kind); n != 0 {
			t.Errorf("live %s = %d, want 0", kind, n)
		}
	}
	if fx.f.DoubleDestroys != 0 {
		t.Errorf("DoubleDestroys = %d", fx.f.DoubleDestroys)
	}
}

func TestBuffersTrackPassGeneration(t *testing.T) {
	fx := newFixture(t, gputypes.TextureFormatUndefined)
	if err := fx.m.Create(fx.config(64, 64, gputypes.TextureFormatUndefined)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer fx.m.Destroy()

	for i, b := range fx.m.Buffers() {
		if b.Generation != fx.pass.Generation || fx.passes.Stale(b.Generation) {
			t.Errorf("buffer %d generation = %d, want current %d", i, b.Generation, fx.pass.Generation)
		}
	}
	if _, err := fx.passes.Build(gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatUndefined, 0); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i, b := range fx.m.Buffers() {
		if !fx.passes.Stale(b.Generation) {
			t.Errorf("buffer %d not stale after a rebuild", i)
		}
	}
}

func TestDestroyOrder(t *testing.T) {
	depth := gputypes.TextureFormatDepth32Float
	fx := newFixture(t, depth)
	cfg := fx.config(64, 64, depth)
	cfg.BackBuffers = 0
	fx.f.Capabilities.MinImageCount = 1
	if err := fx.m.Create(cfg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fx.f.Calls = nil

	fx.m.Destroy()

	want := []string{
		"ResetCommands",
		"DestroyFramebuffer", "DestroyImageView",
		"DestroyImageView", "DestroyImage", "FreeMemory",
		"DestroySwapchain",
	}
	if len(fx.f.Calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fx.f.Calls, want)
	}
	for i := range want {
		if fx.f.Calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", fx.f.Calls, want)
		}
	}
}

func TestCreateRecordsActualBackBuffers(t *testing.T) {
	fx := newFixture(t, gputypes.TextureFormatUndefined)
	fx.f.ExtraImages = 2

	if err := fx.m.Create(fx.config(32, 32, gputypes.TextureFormatUndefined)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := fx.m.BackBuffers(); got != 4 {
		t.Errorf("BackBuffers() = %d, want 4 (5 images returned)", got)
	}
	if fx.m.Depth() != nil {
		t.Error("depth buffer created without a depth format")
	}
	fb := fx.m.Buffers()[0].Framebuffer.(*drivertest.Framebuffer)
	if len(fb.Desc.Attachments) != 1 {
		t.Errorf("attachments = %d, want 1", len(fb.Desc.Attachments))
	}
}

func TestCreateFailureCleansUp(t *testing.T) {
	ops := []string{
		"SurfaceCapabilities", "SurfacePresentModes", "CreateSwapchain", "SwapchainImages",
		"CreateImage", "AllocateMemory", "BindImageMemory", "CreateImageView", "CreateFramebuffer",
	}
	for _, op := range ops {
		t.Run(op, func(t *testing.T) {
			depth := gputypes.TextureFormatDepth24PlusStencil8
			fx := newFixture(t, depth)
			boom := errors.New(op + " failed")
			fx.f.Fail[op] = boom

			err := fx.m.Create(fx.config(100, 100, depth))
			if !errors.Is(err, boom) {
				t.Fatalf("Create err = %v, want %v", err, boom)
			}
			if fx.m.Created() || fx.m.LiveImages() != 0 {
				t.Errorf("manager not empty after failure: created=%v live=%d", fx.m.Created(), fx.m.LiveImages())
			}
			for _, kind := range []string{
				drivertest.KindSwapchain, drivertest.KindSwapImage, drivertest.KindImage,
				drivertest.KindImageView, drivertest.KindMemory, drivertest.KindFramebuffer,
			} {
				if n := fx.f.Live(kind); n != 0 {
					t.Errorf("live %s = %d after failed create", kind, n)
				}
			}
			if fx.pass.Refs() != 0 {
				t.Errorf("pass refs = %d after failed create", fx.pass.Refs())
			}
		})
	}
}

func TestCreateNoMemoryType(t *testing.T) {
	depth := gputypes.TextureFormatDepth24PlusStencil8
	fx := newFixture(t, depth)
	fx.f.Memory = nil

	err := fx.m.Create(fx.config(10, 10, depth))
	if !errors.Is(err, driver.ErrNoMemoryType) {
		t.Fatalf("Create err = %v, want ErrNoMemoryType", err)
	}
	if n := fx.f.Live(drivertest.KindImage); n != 0 {
		t.Errorf("live depth images = %d, want 0", n)
	}
}

func TestCreateTwice(t *testing.T) {
	fx := newFixture(t, gputypes.TextureFormatUndefined)
	cfg := fx.config(10, 10, gputypes.TextureFormatUndefined)
	if err := fx.m.Create(cfg); err != nil {
		t.Fatal(err)
	}
	if err := fx.m.Create(cfg); !errors.Is(err, ErrExists) {
		t.Errorf("second Create err = %v, want ErrExists", err)
	}
}

func TestCreateZeroExtent(t *testing.T) {
	fx := newFixture(t, gputypes.TextureFormatUndefined)
	if err := fx.m.Create(fx.config(0, 10, gputypes.TextureFormatUndefined)); !errors.Is(err, ErrZeroExtent) {
		t.Errorf("Create err = %v, want ErrZeroExtent", err)
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		name string
		hint int
		caps driver.SurfaceCapabilities
		want uint32
	}{
		{"within range", 2, driver.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}, 3},
		{"raised to min", 0, driver.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}, 2},
		{"lowered to max", 9, driver.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 3}, 3},
		{"unbounded max", 9, driver.SurfaceCapabilities{MinImageCount: 2}, 10},
		{"negative hint", -3, driver.SurfaceCapabilities{MinImageCount: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseImageCount(tt.hint, tt.caps); got != tt.want {
				t.Errorf("ChooseImageCount(%d) = %d, want %d", tt.hint, got, tt.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	const (
		fifo      = gputypes.PresentModeFifo
		mailbox   = gputypes.PresentModeMailbox
		immediate = gputypes.PresentModeImmediate
		relaxed   = gputypes.PresentModeFifoRelaxed
	)
	tests := []struct {
		name  string
		modes []gputypes.PresentMode
		sync  bool
		want  gputypes.PresentMode
	}{
		{"mailbox preferred", []gputypes.PresentMode{fifo, immediate, mailbox}, false, mailbox},
		{"immediate over fifo", []gputypes.PresentMode{fifo, relaxed, immediate}, false, immediate},
		{"fifo default", []gputypes.PresentMode{fifo, relaxed}, false, fifo},
		{"empty list", nil, false, fifo},
		{"sync video", []gputypes.PresentMode{mailbox, immediate, fifo}, true, fifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChoosePresentMode(tt.modes, tt.sync); got != tt.want {
				t.Errorf("ChoosePresentMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindMemoryType(t *testing.T) {
	types := []driver.MemoryType{
		{Flags: driver.MemHostVisible},
		{Flags: driver.MemDeviceLocal},
		{Flags: driver.MemDeviceLocal | driver.MemHostVisible},
	}
	if idx, ok := FindMemoryType(types, 0b111, driver.MemDeviceLocal); !ok || idx != 1 {
		t.Errorf("device local = (%d, %v), want (1, true)", idx, ok)
	}
	if idx, ok := FindMemoryType(types, 0b100, driver.MemDeviceLocal); !ok || idx != 2 {
		t.Errorf("restricted bits = (%d, %v), want (2, true)", idx, ok)
	}
	if _, ok := FindMemoryType(types, 0b001, driver.MemDeviceLocal); ok {
		t.Error("found a type outside the allowed bits")
	}
	if idx, ok := FindMemoryType(types, 0b001, 0); !ok || idx != 0 {
		t.Errorf("any flags = (%d, %v), want (0, true)", idx, ok)
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/present/driver"
)

func TestContextLifecycle(t *testing.T) {
	c, s := newSpyContext(t)

	if c.AdapterInfo().Name != "Noop Adapter" {
		t.Errorf("AdapterInfo().Name = %q", c.AdapterInfo().Name)
	}
	if dev, q := c.HAL(); dev == nil || q == nil {
		t.Fatal("HAL() returned nil device or queue")
	}
	if c.Device() != driver.Device(c) || c.Presenter() != driver.Presenter(c) {
		t.Error("Device/Presenter do not return the context")
	}

	if err := c.EndFrame(1); !errors.Is(err, driver.ErrRecording) {
		t.Errorf("EndFrame before BeginFrame = %v, want ErrRecording", err)
	}
	for frame := uint64(1); frame <= 3; frame++ {
		if err := c.BeginFrame(); err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		if err := c.EndFrame(frame); err != nil {
			t.Fatalf("EndFrame: %v", err)
		}
	}
	if s.submits != 3 {
		t.Errorf("submits = %d, want 3", s.submits)
	}
	if len(c.inflight) != 3 {
		t.Errorf("inflight = %d, want 3", len(c.inflight))
	}
	if err := c.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if len(c.inflight) != 0 {
		t.Errorf("inflight after WaitIdle = %d", len(c.inflight))
	}

	c.Close()
	c.Close()
	if err := c.BeginFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginFrame after Close = %v, want ErrClosed", err)
	}
	if err := c.WaitIdle(); !errors.Is(err, ErrClosed) {
		t.Errorf("WaitIdle after Close = %v, want ErrClosed", err)
	}
	if _, err := c.CreateSemaphore(); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateSemaphore after Close = %v, want ErrClosed", err)
	}
}

func TestBeginFrameDiscardsOpenRecording(t *testing.T) {
	c, s := newSpyContext(t)
	if err := c.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginFrame(); err != nil {
		t.Fatalf("second BeginFrame: %v", err)
	}
	if err := c.EndFrame(1); err != nil {
		t.Fatal(err)
	}
	if s.submits != 1 {
		t.Errorf("submits = %d, want 1", s.submits)
	}
}

func TestProvider(t *testing.T) {
	c, _ := newSpyContext(t)
	p := c.Provider()

	var dp gpucontext.DeviceProvider = p
	if _, ok := dp.Device().(hal.Device); !ok {
		t.Errorf("Device() = %T, want hal.Device", dp.Device())
	}
	if _, ok := dp.Device().(driver.Context); ok {
		t.Error("Device() unexpectedly is a driver.Context")
	}
	if p.SurfaceFormat() != gputypes.TextureFormatUndefined {
		t.Errorf("SurfaceFormat() before configure = %v", p.SurfaceFormat())
	}
	if got := p.AdapterInfo(); got.Name != "Noop Adapter" || got.Type != gpucontext.AdapterTypeUnknown {
		t.Errorf("AdapterInfo() = %+v", got)
	}
	if p.DriverContext() != driver.Context(c) {
		t.Error("DriverContext() is not the context")
	}
	c.Close()
	if p.DriverContext() != nil {
		t.Error("DriverContext() of closed context is not nil")
	}
}

func TestAdapterType(t *testing.T) {
	tests := []struct {
		in   gputypes.DeviceType
		want gpucontext.AdapterType
	}{
		{gputypes.DeviceTypeDiscreteGPU, gpucontext.AdapterTypeDiscrete},
		{gputypes.DeviceTypeIntegratedGPU, gpucontext.AdapterTypeIntegrated},
		{gputypes.DeviceTypeCPU, gpucontext.AdapterTypeSoftware},
		{gputypes.DeviceTypeVirtualGPU, gpucontext.AdapterTypeUnknown},
		{gputypes.DeviceTypeOther, gpucontext.AdapterTypeUnknown},
	}
	for _, tt := range tests {
		if got := adapterType(tt.in); got != tt.want {
			t.Errorf("adapterType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResources(t *testing.T) {
	c, _ := newSpyContext(t)

	img, err := c.CreateImage(&driver.ImageDesc{
		Label:  "depth",
		Format: gputypes.TextureFormatDepth24PlusStencil8,
		Extent: driver.Extent{Width: 16, Height: 8},
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	req := c.ImageMemoryRequirements(img)
	if req.Size != 16*8*4 || req.TypeBits != 1 {
		t.Errorf("requirements = %+v", req)
	}
	if types := c.MemoryTypes(); len(types) != 1 || types[0].Flags&driver.MemDeviceLocal == 0 {
		t.Errorf("MemoryTypes() = %+v", types)
	}
	if _, err := c.AllocateMemory(req.Size, 1); !errors.Is(err, driver.ErrNoMemoryType) {
		t.Errorf("AllocateMemory(type 1) = %v, want ErrNoMemoryType", err)
	}
	mem, err := c.AllocateMemory(req.Size, 0)
	if err != nil {
		t.Fatalf("AllocateMemory: %v", err)
	}
	if err := c.BindImageMemory(img, mem); err != nil {
		t.Fatalf("BindImageMemory: %v", err)
	}
	if err := c.BindImageMemory(img, mem); err == nil {
		t.Error("second BindImageMemory succeeded")
	}
	view, err := c.CreateImageView(img, &driver.ImageViewDesc{
		Format: gputypes.TextureFormatDepth24PlusStencil8,
		Aspect: driver.AspectDepth | driver.AspectStencil,
	})
	if err != nil {
		t.Fatalf("CreateImageView: %v", err)
	}
	if view.(*imageView).halView() == nil {
		t.Error("owned image view has no hal view")
	}

	view.Destroy()
	img.Destroy()
	img.Destroy()
	mem.Destroy()
}

func TestForeignHandles(t *testing.T) {
	c, _ := newSpyContext(t)
	type foreign struct{ driver.Destroyer }

	if err := c.BindImageMemory(foreign{}, foreign{}); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("BindImageMemory = %v", err)
	}
	if _, err := c.CreateImageView(foreign{}, &driver.ImageViewDesc{}); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("CreateImageView = %v", err)
	}
	if _, err := c.CreateFramebuffer(&driver.FramebufferDesc{Pass: foreign{}}); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("CreateFramebuffer = %v", err)
	}
	if _, err := c.SurfaceFormats(foreign{}); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("SurfaceFormats = %v", err)
	}
	if _, err := c.AcquireNextImage(foreign{}, nil); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("AcquireNextImage = %v", err)
	}
	if got := c.ImageMemoryRequirements(foreign{}); got != (driver.MemoryRequirements{}) {
		t.Errorf("ImageMemoryRequirements = %+v", got)
	}
}

func TestRenderPassValidation(t *testing.T) {
	c, _ := newSpyContext(t)
	if _, err := c.CreateRenderPass(&driver.RenderPassDesc{}); err == nil {
		t.Error("render pass without attachments accepted")
	}
	_, err := c.CreateRenderPass(&driver.RenderPassDesc{
		Attachments: []driver.AttachmentDesc{{Format: gputypes.TextureFormatBGRA8Unorm}},
		Subpass:     driver.Subpass{Color: []int{0}, DepthStencil: 1},
	})
	if err == nil {
		t.Error("out of range depth attachment accepted")
	}
}

func TestSupportsDepthStencil(t *testing.T) {
	c, _ := newSpyContext(t)
	if !c.SupportsDepthStencil(gputypes.TextureFormatDepth24PlusStencil8) {
		t.Error("Depth24PlusStencil8 unsupported")
	}
	if c.SupportsDepthStencil(gputypes.TextureFormatBGRA8Unorm) {
		t.Error("color format reported as depth/stencil")
	}
}

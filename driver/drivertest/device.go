// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package drivertest

import (
	"errors"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// errForeign is returned when a handle from another implementation is passed in.
var errForeign = errors.New("drivertest: foreign handle")

// Device returns f.
func (f *Fake) Device() driver.Device { return f }

// Presenter returns f.
func (f *Fake) Presenter() driver.Presenter { return f }

// QueueFamilyIndex returns f.Family.
func (f *Fake) QueueFamilyIndex() uint32 { return f.Family }

// WaitIdle counts the wait.
func (f *Fake) WaitIdle() error {
	f.WaitIdles++
	return f.call("WaitIdle")
}

// BeginFrame opens the recording.
func (f *Fake) BeginFrame() error {
	if err := f.call("BeginFrame"); err != nil {
		return err
	}
	f.cmd.Recording = true
	f.cmd.Commands = nil
	return nil
}

// EndFrame closes the recording and moves its commands to Submitted.
func (f *Fake) EndFrame(frame uint64) error {
	if err := f.call("EndFrame"); err != nil {
		return err
	}
	f.Frames = append(f.Frames, frame)
	f.Submitted = append(f.Submitted, f.cmd.Commands)
	f.cmd.Commands = nil
	f.cmd.Recording = false
	return nil
}

// Commands returns the fake command buffer.
func (f *Fake) Commands() driver.CmdBuffer { return f.cmd }

// CreateImage creates a device-owned image.
func (f *Fake) CreateImage(desc *driver.ImageDesc) (driver.Image, error) {
	if err := f.call("CreateImage"); err != nil {
		return nil, err
	}
	return &Image{obj: f.newObj(KindImage), Desc: *desc}, nil
}

// ImageMemoryRequirements reports 4 bytes per pixel, any memory type.
func (f *Fake) ImageMemoryRequirements(img driver.Image) driver.MemoryRequirements {
	f.Calls = append(f.Calls, "ImageMemoryRequirements")
	i, ok := img.(*Image)
	if !ok {
		return driver.MemoryRequirements{}
	}
	size := uint64(i.Desc.Extent.Width) * uint64(i.Desc.Extent.Height) * 4
	return driver.MemoryRequirements{Size: size, TypeBits: 1<<uint(len(f.Memory)) - 1}
}

// MemoryTypes returns f.Memory.
func (f *Fake) MemoryTypes() []driver.MemoryType { return f.Memory }

// AllocateMemory allocates a fake memory block.
func (f *Fake) AllocateMemory(size uint64, typeIndex uint32) (driver.Memory, error) {
	if err := f.call("AllocateMemory"); err != nil {
		return nil, err
	}
	return &Memory{obj: f.newObj(KindMemory), Size: size, TypeIndex: typeIndex}, nil
}

// BindImageMemory binds mem to img.
func (f *Fake) BindImageMemory(img driver.Image, mem driver.Memory) error {
	if err := f.call("BindImageMemory"); err != nil {
		return err
	}
	i, ok := img.(*Image)
	m, ok2 := mem.(*Memory)
	if !ok || !ok2 {
		return errForeign
	}
	i.Memory = m
	return nil
}

// CreateImageView creates a view of img.
func (f *Fake) CreateImageView(img driver.Image, desc *driver.ImageViewDesc) (driver.ImageView, error) {
	if err := f.call("CreateImageView"); err != nil {
		return nil, err
	}
	i, _ := img.(*Image)
	return &ImageView{obj: f.newObj(KindImageView), Image: i, Desc: *desc}, nil
}

// CreateRenderPass creates a render pass and appends it to Passes.
func (f *Fake) CreateRenderPass(desc *driver.RenderPassDesc) (driver.RenderPass, error) {
	if err := f.call("CreateRenderPass"); err != nil {
		return nil, err
	}
	p := &RenderPass{obj: f.newObj(KindRenderPass), Desc: *desc}
	p.Desc.Attachments = append([]driver.AttachmentDesc(nil), desc.Attachments...)
	f.Passes = append(f.Passes, p)
	return p, nil
}

// CreateFramebuffer creates a framebuffer.
func (f *Fake) CreateFramebuffer(desc *driver.FramebufferDesc) (driver.Framebuffer, error) {
	if err := f.call("CreateFramebuffer"); err != nil {
		return nil, err
	}
	fb := &Framebuffer{obj: f.newObj(KindFramebuffer), Desc: *desc}
	fb.Desc.Attachments = append([]driver.ImageView(nil), desc.Attachments...)
	return fb, nil
}

// CreateSemaphore creates a semaphore.
func (f *Fake) CreateSemaphore() (driver.Semaphore, error) {
	if err := f.call("CreateSemaphore"); err != nil {
		return nil, err
	}
	return &Semaphore{obj: f.newObj(KindSemaphore)}, nil
}

// SupportsDepthStencil consults f.DepthStencil.
func (f *Fake) SupportsDepthStencil(format gputypes.TextureFormat) bool {
	if f.DepthStencil == nil {
		return true
	}
	return f.DepthStencil[format]
}

// CreateSurface creates a surface for native.
func (f *Fake) CreateSurface(native driver.NativeSurface) (driver.Surface, error) {
	if err := f.call("CreateSurface"); err != nil {
		return nil, err
	}
	return &Surface{obj: f.newObj(KindSurface), Native: native}, nil
}

// SurfaceFormats returns a copy of f.Formats.
func (f *Fake) SurfaceFormats(driver.Surface) ([]driver.SurfaceFormat, error) {
	if err := f.call("SurfaceFormats"); err != nil {
		return nil, err
	}
	return append([]driver.SurfaceFormat(nil), f.Formats...), nil
}

// SurfaceCapabilities returns f.Capabilities.
func (f *Fake) SurfaceCapabilities(driver.Surface) (driver.SurfaceCapabilities, error) {
	if err := f.call("SurfaceCapabilities"); err != nil {
		return driver.SurfaceCapabilities{}, err
	}
	return f.Capabilities, nil
}

// SurfacePresentModes returns a copy of f.PresentModes.
func (f *Fake) SurfacePresentModes(driver.Surface) ([]gputypes.PresentMode, error) {
	if err := f.call("SurfacePresentModes"); err != nil {
		return nil, err
	}
	return append([]gputypes.PresentMode(nil), f.PresentModes...), nil
}

// CreateSwapchain creates desc.ImageCount+f.ExtraImages images.
func (f *Fake) CreateSwapchain(desc *driver.SwapchainDesc) (driver.Swapchain, error) {
	if err := f.call("CreateSwapchain"); err != nil {
		return nil, err
	}
	sc := &Swapchain{obj: f.newObj(KindSwapchain), Desc: *desc}
	n := desc.ImageCount + f.ExtraImages
	for range n {
		sc.Images = append(sc.Images, &Image{
			obj:       f.newObj(KindSwapImage),
			Swapchain: sc,
			Desc: driver.ImageDesc{
				Format:      desc.Format.Format,
				Extent:      desc.Extent,
				MipLevels:   1,
				ArrayLayers: 1,
				Usage:       desc.Usage,
			},
		})
	}
	f.Swapchains = append(f.Swapchains, sc)
	f.next = 0
	return sc, nil
}

// SwapchainImages returns the images of sc.
func (f *Fake) SwapchainImages(sc driver.Swapchain) ([]driver.Image, error) {
	if err := f.call("SwapchainImages"); err != nil {
		return nil, err
	}
	s, ok := sc.(*Swapchain)
	if !ok {
		return nil, errForeign
	}
	out := make([]driver.Image, len(s.Images))
	for i, img := range s.Images {
		out[i] = img
	}
	return out, nil
}

// AcquireNextImage hands out image indices round-robin unless
// f.AcquireIndex is set.
func (f *Fake) AcquireNextImage(sc driver.Swapchain, _ driver.Semaphore) (uint32, error) {
	if err := f.call("AcquireNextImage"); err != nil {
		return 0, err
	}
	s, ok := sc.(*Swapchain)
	if !ok {
		return 0, errForeign
	}
	if f.AcquireIndex != nil {
		return f.AcquireIndex(len(s.Images)), nil
	}
	idx := f.next % uint32(len(s.Images)) //nolint:gosec // image count fits uint32
	f.next++
	return idx, nil
}

// QueuePresent records the index and pops the next status.
func (f *Fake) QueuePresent(_ driver.Swapchain, index uint32, _ driver.Semaphore) (gputypes.SurfaceStatus, error) {
	if err := f.call("QueuePresent"); err != nil {
		return gputypes.SurfaceStatusUnknown, err
	}
	if f.PresentErr != nil {
		return gputypes.SurfaceStatusUnknown, f.PresentErr
	}
	f.Presents = append(f.Presents, index)
	status := gputypes.SurfaceStatusGood
	if len(f.PresentStatus) > 0 {
		status = f.PresentStatus[0]
		f.PresentStatus = f.PresentStatus[1:]
	}
	return status, nil
}

// Package resource tracks the usage state of GPU images across frames.
//
// An Image records the layout, access scope and pipeline stage of its last
// recorded transition. The state is a CPU-side prediction used to choose
// the next barrier; it says nothing about whether the GPU has executed the
// transition yet.
package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// State is the usage state of an image after its last recorded transition.
type State struct {
	Layout driver.Layout
	Access driver.Access
	Stage  driver.Stage
}

// String formats the state for logs.
func (s State) String() string {
	return fmt.Sprintf("%s access=%#x stage=%#x", s.Layout, int(s.Access), int(s.Stage))
}

// Image is a GPU image, its view and its tracked usage state.
//
// Memory is nil for swapchain images, which belong to the presentation
// engine. An Image is owned by exactly one swapchain or window and is
// mutated only from the draw goroutine.
type Image struct {
	Handle driver.Image
	View   driver.ImageView
	Memory driver.Memory

	Format      gputypes.TextureFormat
	Extent      driver.Extent
	MipLevels   uint32
	ArrayLayers uint32
	Aspect      driver.Aspect

	State
}

// New returns an Image with one mip level, one layer and undefined layout.
func New(handle driver.Image, format gputypes.TextureFormat, extent driver.Extent, aspect driver.Aspect) *Image {
	return &Image{
		Handle:      handle,
		Format:      format,
		Extent:      extent,
		MipLevels:   1,
		ArrayLayers: 1,
		Aspect:      aspect,
	}
}

// AspectOf returns the aspects present in format.
func AspectOf(format gputypes.TextureFormat) driver.Aspect {
	var a driver.Aspect
	if format.HasDepth() {
		a |= driver.AspectDepth
	}
	if format.HasStencil() {
		a |= driver.AspectStencil
	}
	if a == 0 {
		a = driver.AspectColor
	}
	return a
}

// Owned reports whether the image has device memory bound by this package's
// caller, as opposed to being provided by a swapchain.
func (img *Image) Owned() bool { return img.Memory != nil }

// Transition records a barrier moving the image to layout and updates the
// tracked state. No barrier is recorded when the image is already in the
// requested state.
func (img *Image) Transition(cmd driver.CmdBuffer, family uint32, layout driver.Layout, stage driver.Stage, access driver.Access) {
	next := State{Layout: layout, Access: access, Stage: stage}
	if img.State == next {
		return
	}

	before := img.Stage
	if before == driver.SNone {
		before = driver.STopOfPipe
	}
	cmd.PipelineBarrier([]driver.Transition{{
		Barrier: driver.Barrier{
			StageBefore:  before,
			StageAfter:   stage,
			AccessBefore: img.Access,
			AccessAfter:  access,
		},
		LayoutBefore: img.Layout,
		LayoutAfter:  layout,
		Image:        img.Handle,
		Aspect:       img.Aspect,
		MipLevels:    img.MipLevels,
		ArrayLayers:  img.ArrayLayers,
		SrcFamily:    family,
		DstFamily:    family,
	}})
	img.State = next
}

// SetState updates the tracked state without recording a barrier. It is
// used when a render pass performs the transition implicitly.
func (img *Image) SetState(layout driver.Layout, stage driver.Stage, access driver.Access) {
	img.State = State{Layout: layout, Access: access, Stage: stage}
}

// ClearColor transitions the image for transfer writes and records a clear
// to color. The image is left in the transfer-destination layout.
func (img *Image) ClearColor(cmd driver.CmdBuffer, family uint32, color gputypes.Color) {
	img.Transition(cmd, family, driver.LTransferDst, driver.STransfer, driver.ATransferWrite)
	cmd.ClearColorImage(img.Handle, driver.LTransferDst, color)
}

// Destroy releases the view and, for owned images, the image and its
// memory, in that order. Swapchain images themselves are left to their
// swapchain. Destroy is idempotent.
func (img *Image) Destroy() {
	if img.View != nil {
		img.View.Destroy()
		img.View = nil
	}
	if img.Memory != nil {
		if img.Handle != nil {
			img.Handle.Destroy()
		}
		img.Memory.Destroy()
		img.Memory = nil
	}
	img.Handle = nil
	img.State = State{}
}

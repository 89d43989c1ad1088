// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/present/driver"
)

// cmdBuffer is the driver.CmdBuffer of a Context. It records into the
// context's frame encoder between BeginFrame and EndFrame.
type cmdBuffer struct {
	ctx       *Context
	recording bool
	pass      hal.RenderPassEncoder

	// garbage holds views that submitted work may still read. They are
	// destroyed on the next WaitIdle.
	garbage []hal.TextureView
}

var _ driver.CmdBuffer = (*cmdBuffer)(nil)

// RenderPass returns the encoder of the active render pass, or nil.
// Draw calls recorded on it land in the current frame.
func (c *Context) RenderPass() hal.RenderPassEncoder { return c.cmd.pass }

// Reset ends an open pass and discards the recording.
func (b *cmdBuffer) Reset() error {
	if b.ctx.closed {
		return ErrClosed
	}
	b.endPass()
	if b.recording {
		b.ctx.encoder.DiscardEncoding()
		b.recording = false
	}
	return nil
}

// BeginRenderPass begins a hal render pass on the framebuffer's views,
// applying the attachment operations of the pass.
func (b *cmdBuffer) BeginRenderPass(begin *driver.RenderPassBegin) {
	if !b.recording {
		slogger().Warn("haldriver: begin render pass outside recording")
		return
	}
	if b.pass != nil {
		slogger().Warn("haldriver: begin render pass inside render pass")
		return
	}
	rp, ok := begin.Pass.(*renderPass)
	fb, fok := begin.Framebuffer.(*framebuffer)
	if !ok || !fok {
		slogger().Warn("haldriver: begin render pass", "err", ErrForeignHandle)
		return
	}

	clearOf := func(i int) driver.ClearValue {
		if i < len(begin.ClearValues) {
			return begin.ClearValues[i]
		}
		return driver.ClearValue{}
	}

	desc := &hal.RenderPassDescriptor{Label: rp.desc.Label}
	for _, i := range rp.desc.Subpass.Color {
		att := rp.desc.Attachments[i]
		view := fb.views[i].halView()
		if view == nil {
			slogger().Warn("haldriver: color attachment has no acquired texture", "attachment", i)
			return
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     att.Load,
			StoreOp:    att.Store,
			ClearValue: clearOf(i).Color,
		})
	}
	if i := rp.desc.Subpass.DepthStencil; i >= 0 {
		att := rp.desc.Attachments[i]
		cv := clearOf(i)
		ds := &hal.RenderPassDepthStencilAttachment{
			View:            fb.views[i].halView(),
			DepthLoadOp:     att.Load,
			DepthStoreOp:    att.Store,
			DepthClearValue: cv.Depth,
		}
		if att.Format.HasStencil() {
			ds.StencilLoadOp = att.StencilLoad
			ds.StencilStoreOp = att.StencilStore
			ds.StencilClearValue = cv.Stencil
		}
		desc.DepthStencilAttachment = ds
	}
	b.pass = b.ctx.encoder.BeginRenderPass(desc)
}

// EndRenderPass ends the active render pass.
func (b *cmdBuffer) EndRenderPass() {
	if b.pass == nil {
		slogger().Warn("haldriver: end render pass without render pass")
		return
	}
	b.endPass()
}

func (b *cmdBuffer) endPass() {
	if b.pass != nil {
		b.pass.End()
		b.pass = nil
	}
}

// PipelineBarrier records usage transitions for the images that have a
// texture. Transitions that keep the usage are dropped.
func (b *cmdBuffer) PipelineBarrier(transitions []driver.Transition) {
	if !b.recording {
		slogger().Warn("haldriver: barrier outside recording")
		return
	}
	barriers := make([]hal.TextureBarrier, 0, len(transitions))
	for _, t := range transitions {
		img, ok := t.Image.(*image)
		if !ok {
			continue
		}
		tex := img.texture()
		if tex == nil {
			continue
		}
		before, after := layoutUsage(t.LayoutBefore), layoutUsage(t.LayoutAfter)
		if before == after {
			continue
		}
		barriers = append(barriers, hal.TextureBarrier{
			Texture: tex,
			Range: hal.TextureRange{
				Aspect:          halAspect(t.Aspect),
				MipLevelCount:   max(t.MipLevels, 1),
				ArrayLayerCount: max(t.ArrayLayers, 1),
			},
			Usage: hal.TextureUsageTransition{OldUsage: before, NewUsage: after},
		})
	}
	if len(barriers) > 0 {
		b.ctx.encoder.TransitionTextures(barriers)
	}
}

// ClearColorImage clears img with a render pass that loads by clearing.
// The image is moved to the attachment usage for the pass and back to the
// usage of layout.
func (b *cmdBuffer) ClearColorImage(img driver.Image, layout driver.Layout, color gputypes.Color) {
	if !b.recording || b.pass != nil {
		slogger().Warn("haldriver: clear color image outside recording or inside render pass")
		return
	}
	i, ok := img.(*image)
	if !ok || i.texture() == nil {
		return
	}
	view, err := b.ctx.device.CreateTextureView(i.texture(), &hal.TextureViewDescriptor{
		Label:           i.label + "_clear_view",
		Format:          i.format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		slogger().Warn("haldriver: clear view", "err", err)
		return
	}
	b.garbage = append(b.garbage, view)

	usage := layoutUsage(layout)
	transition := func(from, to gputypes.TextureUsage) {
		if from == to {
			return
		}
		b.ctx.encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: i.texture(),
			Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1},
			Usage:   hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
		}})
	}
	transition(usage, gputypes.TextureUsageRenderAttachment)
	pass := b.ctx.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: i.label + "_clear",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: color,
		}},
	})
	pass.End()
	transition(gputypes.TextureUsageRenderAttachment, usage)
}

func (b *cmdBuffer) releaseGarbage() {
	for _, v := range b.garbage {
		if v != nil {
			b.ctx.device.DestroyTextureView(v)
		}
	}
	b.garbage = b.garbage[:0]
}

// layoutUsage maps a layout to the texture usage hal tracks for it.
// Presentation has no usage of its own and stays a render attachment.
func layoutUsage(l driver.Layout) gputypes.TextureUsage {
	switch l {
	case driver.LColorAttachment, driver.LDepthStencilAttachment, driver.LPresentSrc:
		return gputypes.TextureUsageRenderAttachment
	case driver.LTransferSrc:
		return gputypes.TextureUsageCopySrc
	case driver.LTransferDst:
		return gputypes.TextureUsageCopyDst
	default:
		return gputypes.TextureUsageNone
	}
}

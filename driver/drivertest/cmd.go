// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package drivertest

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// Command ops recorded by CmdBuffer.
const (
	OpBeginPass = "begin-pass"
	OpEndPass   = "end-pass"
	OpBarrier   = "barrier"
	OpClear     = "clear-color"
)

// Command is one recorded command.
type Command struct {
	Op          string
	Begin       driver.RenderPassBegin
	Transitions []driver.Transition
	Image       driver.Image
	Layout      driver.Layout
	Color       gputypes.Color
}

// CmdBuffer is a fake driver.CmdBuffer. Commands holds the commands of
// the frame being recorded.
type CmdBuffer struct {
	f         *Fake
	Recording bool
	InPass    bool
	Resets    int
	Commands  []Command
}

var _ driver.CmdBuffer = (*CmdBuffer)(nil)

// Ops returns the op names of the recorded commands.
func (c *CmdBuffer) Ops() []string {
	ops := make([]string, len(c.Commands))
	for i, cmd := range c.Commands {
		ops[i] = cmd.Op
	}
	return ops
}

// Reset drops all recorded commands.
func (c *CmdBuffer) Reset() error {
	c.Resets++
	c.Commands = nil
	c.InPass = false
	return c.f.call("ResetCommands")
}

// BeginRenderPass records a pass begin.
func (c *CmdBuffer) BeginRenderPass(begin *driver.RenderPassBegin) {
	b := *begin
	b.ClearValues = append([]driver.ClearValue(nil), begin.ClearValues...)
	c.InPass = true
	c.Commands = append(c.Commands, Command{Op: OpBeginPass, Begin: b})
}

// EndRenderPass records a pass end.
func (c *CmdBuffer) EndRenderPass() {
	c.InPass = false
	c.Commands = append(c.Commands, Command{Op: OpEndPass})
}

// PipelineBarrier records transitions.
func (c *CmdBuffer) PipelineBarrier(transitions []driver.Transition) {
	c.Commands = append(c.Commands, Command{
		Op:          OpBarrier,
		Transitions: append([]driver.Transition(nil), transitions...),
	})
}

// ClearColorImage records a clear.
func (c *CmdBuffer) ClearColorImage(img driver.Image, layout driver.Layout, color gputypes.Color) {
	c.Commands = append(c.Commands, Command{Op: OpClear, Image: img, Layout: layout, Color: color})
}

// Provider is a gpucontext.DeviceProvider whose Device is a Fake.
type Provider struct {
	Ctx    *Fake
	Format gputypes.TextureFormat
}

var _ gpucontext.DeviceProvider = (*Provider)(nil)

// Device returns the fake context.
func (p *Provider) Device() gpucontext.Device { return p.Ctx }

// Queue returns nil; the fake has no separate queue object.
func (p *Provider) Queue() gpucontext.Queue { return nil }

// SurfaceFormat returns p.Format.
func (p *Provider) SurfaceFormat() gputypes.TextureFormat { return p.Format }

// Adapter returns nil.
func (p *Provider) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo describes the fake as a software adapter.
func (p *Provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "drivertest", Type: gpucontext.AdapterTypeSoftware}
}

// Host is a window stand-in with a mutable size and exposed flag.
type Host struct {
	W, H      int
	Native    driver.NativeSurface
	Unexposed bool
	Redraws   int
}

// Size returns the client size.
func (h *Host) Size() (int, int) { return h.W, h.H }

// ScaleFactor returns 1.
func (h *Host) ScaleFactor() float64 { return 1 }

// RequestRedraw counts redraw requests.
func (h *Host) RequestRedraw() { h.Redraws++ }

// NativeSurface returns h.Native.
func (h *Host) NativeSurface() driver.NativeSurface { return h.Native }

// Exposed reports whether the window may be drawn.
func (h *Host) Exposed() bool { return !h.Unexposed }

// Resize changes the client size.
func (h *Host) Resize(w, hgt int) { h.W, h.H = w, hgt }

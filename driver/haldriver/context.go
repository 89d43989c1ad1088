// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/present/driver"
)

// Errors.
var (
	// ErrNoAdapter is returned when the backend enumerates no adapter.
	ErrNoAdapter = errors.New("haldriver: no adapter")

	// ErrClosed is returned by operations on a closed context.
	ErrClosed = errors.New("haldriver: context closed")

	// ErrForeignHandle is returned when a handle created by another driver
	// is passed in.
	ErrForeignHandle = errors.New("haldriver: foreign handle")
)

// Config selects the adapter and device of a context.
type Config struct {
	// Label prefixes the debug labels of created objects. Defaults to
	// "present".
	Label string

	// Backends limits the APIs the instance may use. Zero means all.
	Backends gputypes.Backends

	// PreferredType picks the first adapter of this type when several are
	// enumerated. gputypes.DeviceTypeOther keeps the backend's order.
	PreferredType gputypes.DeviceType

	// Features and Limits are requested from the adapter. A zero Limits
	// requests gputypes.DefaultLimits.
	Features gputypes.Features
	Limits   gputypes.Limits
}

// Context is a driver.Context on one hal device.
//
// It implements driver.Device and driver.Presenter itself. All methods must
// be called from the draw goroutine.
type Context struct {
	cfg     Config
	backend string

	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue

	encoder  hal.CommandEncoder
	cmd      *cmdBuffer
	inflight []hal.CommandBuffer
	format   gputypes.TextureFormat
	closed   bool
}

var (
	_ driver.Context   = (*Context)(nil)
	_ driver.Device    = (*Context)(nil)
	_ driver.Presenter = (*Context)(nil)
)

// NewContext creates an instance on backend, opens its first adapter (or
// the first of cfg.PreferredType) and creates the command encoder.
func NewContext(backend hal.Backend, cfg Config) (*Context, error) {
	if cfg.Label == "" {
		cfg.Label = "present"
	}
	if cfg.Backends == gputypes.BackendsNone {
		cfg.Backends = gputypes.BackendsAll
	}
	if cfg.Limits == (gputypes.Limits{}) {
		cfg.Limits = gputypes.DefaultLimits()
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Backends: cfg.Backends})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	c := &Context{cfg: cfg, backend: backend.Variant().String(), instance: instance}
	c.cmd = &cmdBuffer{ctx: c}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		c.Close()
		return nil, ErrNoAdapter
	}
	chosen := adapters[0]
	if cfg.PreferredType != gputypes.DeviceTypeOther {
		for _, a := range adapters {
			if a.Info.DeviceType == cfg.PreferredType {
				chosen = a
				break
			}
		}
	}
	c.adapter = chosen.Adapter
	c.info = chosen.Info

	open, err := c.adapter.Open(cfg.Features, cfg.Limits)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open device: %w", err)
	}
	c.device = open.Device
	c.queue = open.Queue

	c.encoder, err = c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: cfg.Label + "_frame_encoder",
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create command encoder: %w", err)
	}

	slogger().Info("haldriver: context opened",
		"adapter", c.info.Name,
		"type", c.info.DeviceType.String(),
		"backend", c.info.Backend.String())
	return c, nil
}

// Close waits for the device to go idle and releases the encoder, device,
// adapter and instance. Close is idempotent.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.device != nil {
		if err := c.device.WaitIdle(); err != nil {
			slogger().Warn("haldriver: wait idle on close", "err", err)
		}
		c.releaseInflight()
	}
	if c.encoder != nil {
		c.encoder.Destroy()
		c.encoder = nil
	}
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Destroy()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}

// Backend returns the name the context was opened under.
func (c *Context) Backend() string { return c.backend }

// AdapterInfo returns the description of the opened adapter.
func (c *Context) AdapterInfo() gputypes.AdapterInfo { return c.info }

// HAL returns the underlying device and queue, for pipeline creation.
func (c *Context) HAL() (hal.Device, hal.Queue) { return c.device, c.queue }

// Adapter returns the underlying adapter.
func (c *Context) Adapter() hal.Adapter { return c.adapter }

// SetLogger forwards l to the package logger.
func (c *Context) SetLogger(l *slog.Logger) { SetLogger(l) }

// Device returns c.
func (c *Context) Device() driver.Device { return c }

// Presenter returns c.
func (c *Context) Presenter() driver.Presenter { return c }

// QueueFamilyIndex returns 0; hal exposes a single queue.
func (c *Context) QueueFamilyIndex() uint32 { return 0 }

// WaitIdle blocks until the device is idle and frees the command buffers
// of finished frames.
func (c *Context) WaitIdle() error {
	if c.closed {
		return ErrClosed
	}
	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("haldriver: wait idle: %w", err)
	}
	c.releaseInflight()
	return nil
}

func (c *Context) releaseInflight() {
	for _, cb := range c.inflight {
		c.device.FreeCommandBuffer(cb)
	}
	c.inflight = c.inflight[:0]
	c.cmd.releaseGarbage()
}

// BeginFrame opens the frame encoder.
func (c *Context) BeginFrame() error {
	if c.closed {
		return ErrClosed
	}
	if c.cmd.recording {
		c.encoder.DiscardEncoding()
		c.cmd.recording = false
	}
	if err := c.encoder.BeginEncoding(c.cfg.Label + "_frame"); err != nil {
		return fmt.Errorf("haldriver: begin encoding: %w", err)
	}
	c.cmd.recording = true
	return nil
}

// EndFrame closes the frame encoder and submits it. The command buffer is
// freed on the next WaitIdle.
func (c *Context) EndFrame(frame uint64) error {
	if c.closed {
		return ErrClosed
	}
	if !c.cmd.recording {
		return driver.ErrRecording
	}
	c.cmd.endPass()
	c.cmd.recording = false

	cb, err := c.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("haldriver: end encoding: %w", err)
	}
	c.inflight = append(c.inflight, cb)
	idx, err := c.queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		return fmt.Errorf("haldriver: submit frame %d: %w", frame, err)
	}
	slogger().Debug("haldriver: submitted", "frame", frame, "submission", idx)
	return nil
}

// Commands returns the frame recording.
func (c *Context) Commands() driver.CmdBuffer { return c.cmd }

// Provider wraps c as a gpucontext.DeviceProvider.
func (c *Context) Provider() *Provider { return &Provider{ctx: c} }

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// Provider exposes a Context as a gpucontext.DeviceProvider.
//
// Device, Queue and Adapter return the hal objects, so other gogpu
// libraries can share the device. Windows bind through DriverContext.
type Provider struct {
	ctx *Context
}

var (
	_ gpucontext.DeviceProvider = (*Provider)(nil)
	_ driver.ContextProvider    = (*Provider)(nil)
)

// Device returns the hal.Device.
func (p *Provider) Device() gpucontext.Device { return p.ctx.device }

// Queue returns the hal.Queue.
func (p *Provider) Queue() gpucontext.Queue { return p.ctx.queue }

// Adapter returns the hal.Adapter.
func (p *Provider) Adapter() gpucontext.Adapter { return p.ctx.adapter }

// SurfaceFormat returns the format of the last configured swapchain, or
// gputypes.TextureFormatUndefined before any.
func (p *Provider) SurfaceFormat() gputypes.TextureFormat { return p.ctx.format }

// AdapterInfo describes the opened adapter.
func (p *Provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: p.ctx.info.Name, Type: adapterType(p.ctx.info.DeviceType)}
}

// DriverContext returns the Context.
func (p *Provider) DriverContext() driver.Context {
	if p.ctx.closed {
		return nil
	}
	return p.ctx
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

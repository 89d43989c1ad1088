// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	stdimage "image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// spy records what the context sends to a noop backend and injects
// surface errors.
type spy struct {
	barriers    [][]hal.TextureBarrier
	passes      []*hal.RenderPassDescriptor
	submits     int
	presents    int
	acquires    int
	configures  []hal.SurfaceConfiguration
	acquireErrs []error
	suboptimal  bool
	presentErr  error
}

type spyBackend struct {
	hal.Backend
	s *spy
}

func (b *spyBackend) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	inst, err := b.Backend.CreateInstance(desc)
	if err != nil {
		return nil, err
	}
	return &spyInstance{Instance: inst, s: b.s}, nil
}

type spyInstance struct {
	hal.Instance
	s *spy
}

func (i *spyInstance) CreateSurface(display, window uintptr) (hal.Surface, error) {
	surf, err := i.Instance.CreateSurface(display, window)
	if err != nil {
		return nil, err
	}
	return &spySurface{Surface: surf, s: i.s}, nil
}

func (i *spyInstance) EnumerateAdapters(hint hal.Surface) []hal.ExposedAdapter {
	adapters := i.Instance.EnumerateAdapters(hint)
	for k := range adapters {
		adapters[k].Adapter = &spyAdapter{Adapter: adapters[k].Adapter, s: i.s}
	}
	return adapters
}

type spyAdapter struct {
	hal.Adapter
	s *spy
}

func (a *spyAdapter) Open(features gputypes.Features, limits gputypes.Limits) (hal.OpenDevice, error) {
	od, err := a.Adapter.Open(features, limits)
	if err != nil {
		return od, err
	}
	od.Device = &spyDevice{Device: od.Device, s: a.s}
	od.Queue = &spyQueue{Queue: od.Queue, s: a.s}
	return od, nil
}

type spyDevice struct {
	hal.Device
	s *spy
}

func (d *spyDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &spyEncoder{CommandEncoder: enc, s: d.s}, nil
}

type spyEncoder struct {
	hal.CommandEncoder
	s *spy
}

func (e *spyEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	e.s.barriers = append(e.s.barriers, append([]hal.TextureBarrier(nil), barriers...))
	e.CommandEncoder.TransitionTextures(barriers)
}

func (e *spyEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.s.passes = append(e.s.passes, desc)
	return e.CommandEncoder.BeginRenderPass(desc)
}

type spyQueue struct {
	hal.Queue
	s *spy
}

func (q *spyQueue) Submit(cbs []hal.CommandBuffer) (uint64, error) {
	q.s.submits++
	return q.Queue.Submit(cbs)
}

func (q *spyQueue) Present(surface hal.Surface, tex hal.SurfaceTexture, damage []stdimage.Rectangle) error {
	q.s.presents++
	if q.s.presentErr != nil {
		return q.s.presentErr
	}
	return q.Queue.Present(surface, tex, damage)
}

type spySurface struct {
	hal.Surface
	s *spy
}

func (s *spySurface) Configure(device hal.Device, cfg *hal.SurfaceConfiguration) error {
	s.s.configures = append(s.s.configures, *cfg)
	return s.Surface.Configure(device, cfg)
}

func (s *spySurface) AcquireTexture(fence hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	s.s.acquires++
	if len(s.s.acquireErrs) > 0 {
		err := s.s.acquireErrs[0]
		s.s.acquireErrs = s.s.acquireErrs[1:]
		return nil, err
	}
	at, err := s.Surface.AcquireTexture(fence)
	if err != nil {
		return nil, err
	}
	at.Suboptimal = s.s.suboptimal
	return at, nil
}

// newSpyContext opens a context on a spied noop backend.
func newSpyContext(t *testing.T) (*Context, *spy) {
	t.Helper()
	s := &spy{}
	c, err := NewContext(&spyBackend{Backend: noop.API{}, s: s}, Config{Label: "test"})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(c.Close)
	return c, s
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func noopFactory() (hal.Backend, error) { return noop.API{}, nil }

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("low", 1, noopFactory, nil)
	r.Register("high", 100, noopFactory, nil)
	r.Register("mid-b", 50, noopFactory, nil)
	r.Register("mid-a", 50, noopFactory, nil)
	r.Register("off", 200, noopFactory, func() bool { return false })

	if got, want := r.List(), []string{"off", "high", "mid-a", "mid-b", "low"}; !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if got, want := r.Available(), []string{"high", "mid-a", "mid-b", "low"}; !slices.Equal(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}

	r.Unregister("high")
	if _, ok := r.Get("high"); ok {
		t.Error("Get after Unregister found the entry")
	}
	e, ok := r.Get("low")
	if !ok || e.Priority != 1 {
		t.Fatalf("Get(low) = %+v, %v", e, ok)
	}
	e.Priority = 99
	if e2, _ := r.Get("low"); e2.Priority != 1 {
		t.Error("Get returned the stored entry instead of a copy")
	}
}

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	if r.List() != nil {
		t.Errorf("List() = %v, want nil", r.List())
	}
	if _, err := r.Open(Config{}); !errors.Is(err, ErrNoBackendAvailable) {
		t.Errorf("Open() = %v, want ErrNoBackendAvailable", err)
	}
}

func TestOpenByNameErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register("off", 1, noopFactory, func() bool { return false })
	r.Register("broken", 1, func() (hal.Backend, error) { return nil, boom }, nil)

	_, err := r.OpenByName("missing", Config{})
	var nf *BackendNotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing" {
		t.Errorf("OpenByName(missing) = %v, want BackendNotFoundError", err)
	}

	_, err = r.OpenByName("off", Config{})
	var ua *BackendUnavailableError
	if !errors.As(err, &ua) || ua.Name != "off" {
		t.Errorf("OpenByName(off) = %v, want BackendUnavailableError", err)
	}

	if _, err = r.OpenByName("broken", Config{}); !errors.Is(err, boom) {
		t.Errorf("OpenByName(broken) = %v, want %v", err, boom)
	}
}

func TestOpenFallsBack(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", 100, func() (hal.Backend, error) { return nil, errors.New("no driver") }, nil)
	r.Register("noop", 0, noopFactory, nil)

	ctx, err := r.Open(Config{})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer ctx.Close()
	if ctx.Backend() != "noop" {
		t.Errorf("Backend() = %q, want noop", ctx.Backend())
	}
}

func TestDefaultRegistry(t *testing.T) {
	names := List()
	for _, want := range []string{"vulkan", "metal", "dx12", "gl", "software", "noop"} {
		if !slices.Contains(names, want) {
			t.Errorf("List() = %v, missing %q", names, want)
		}
	}
	if names[len(names)-1] != "noop" {
		t.Errorf("noop is not last: %v", names)
	}

	// Native backends are available only when their hal package is linked.
	_, linked := hal.GetBackend(gputypes.BackendVulkan)
	if got := slices.Contains(Available(), "vulkan"); got != linked {
		t.Errorf("vulkan available = %v, hal registration = %v", got, linked)
	}

	ctx, err := OpenByName("noop", Config{})
	if err != nil {
		t.Fatalf("OpenByName(noop) = %v", err)
	}
	defer ctx.Close()
	if got := ctx.AdapterInfo().Name; got != "Noop Adapter" {
		t.Errorf("adapter = %q", got)
	}
}

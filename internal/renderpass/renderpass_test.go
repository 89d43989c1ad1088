package renderpass

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
	"github.com/gogpu/present/driver/drivertest"
)

const (
	colorFmt = gputypes.TextureFormatBGRA8Unorm
	depthFmt = gputypes.TextureFormatDepth24PlusStencil8
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name         string
		depth        gputypes.TextureFormat
		mask         ClearMask
		wantAtts     int
		colorLoad    gputypes.LoadOp
		colorInitial driver.Layout
		depthLoad    gputypes.LoadOp
		stencilLoad  gputypes.LoadOp
		depthInitial driver.Layout
	}{
		{
			name:         "color only load",
			depth:        gputypes.TextureFormatUndefined,
			wantAtts:     1,
			colorLoad:    gputypes.LoadOpLoad,
			colorInitial: driver.LColorAttachment,
		},
		{
			name:         "color only clear",
			depth:        gputypes.TextureFormatUndefined,
			mask:         ClearColor,
			wantAtts:     1,
			colorLoad:    gputypes.LoadOpClear,
			colorInitial: driver.LUndefined,
		},
		{
			name:         "depth cleared stencil loaded",
			depth:        depthFmt,
			mask:         ClearColor | ClearDepth,
			wantAtts:     2,
			colorLoad:    gputypes.LoadOpClear,
			colorInitial: driver.LUndefined,
			depthLoad:    gputypes.LoadOpClear,
			stencilLoad:  gputypes.LoadOpLoad,
			depthInitial: driver.LDepthStencilAttachment,
		},
		{
			name:         "both depth clears",
			depth:        depthFmt,
			mask:         ClearDepth | ClearStencil,
			wantAtts:     2,
			colorLoad:    gputypes.LoadOpLoad,
			colorInitial: driver.LColorAttachment,
			depthLoad:    gputypes.LoadOpClear,
			stencilLoad:  gputypes.LoadOpClear,
			depthInitial: driver.LUndefined,
		},
		{
			name:         "stencil only clear",
			depth:        depthFmt,
			mask:         ClearStencil,
			wantAtts:     2,
			colorLoad:    gputypes.LoadOpLoad,
			colorInitial: driver.LColorAttachment,
			depthLoad:    gputypes.LoadOpLoad,
			stencilLoad:  gputypes.LoadOpClear,
			depthInitial: driver.LDepthStencilAttachment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Describe(colorFmt, tt.depth, tt.mask)
			if len(desc.Attachments) != tt.wantAtts {
				t.Fatalf("attachments = %d, want %d", len(desc.Attachments), tt.wantAtts)
			}
			c := desc.Attachments[0]
			if c.Load != tt.colorLoad || c.InitialLayout != tt.colorInitial {
				t.Errorf("color load/initial = %v/%v, want %v/%v", c.Load, c.InitialLayout, tt.colorLoad, tt.colorInitial)
			}
			if c.Store != gputypes.StoreOpStore || c.FinalLayout != driver.LPresentSrc {
				t.Errorf("color store/final = %v/%v, want Store/PresentSrc", c.Store, c.FinalLayout)
			}
			if len(desc.Subpass.Color) != 1 || desc.Subpass.Color[0] != 0 {
				t.Errorf("subpass color = %v, want [0]", desc.Subpass.Color)
			}
			if tt.wantAtts == 1 {
				if desc.Subpass.DepthStencil != -1 {
					t.Errorf("subpass depth = %d, want -1", desc.Subpass.DepthStencil)
				}
				return
			}
			d := desc.Attachments[1]
			if desc.Subpass.DepthStencil != 1 {
				t.Errorf("subpass depth = %d, want 1", desc.Subpass.DepthStencil)
			}
			if d.Load != tt.depthLoad || d.StencilLoad != tt.stencilLoad {
				t.Errorf("depth/stencil load = %v/%v, want %v/%v", d.Load, d.StencilLoad, tt.depthLoad, tt.stencilLoad)
			}
			if d.InitialLayout != tt.depthInitial || d.FinalLayout != driver.LDepthStencilAttachment {
				t.Errorf("depth layouts = %v -> %v, want %v -> DepthStencilAttachment", d.InitialLayout, d.FinalLayout, tt.depthInitial)
			}
		})
	}
}

func TestRebuildIffMaskChanges(t *testing.T) {
	f := drivertest.New()
	m := NewManager(f, false)

	masks := []ClearMask{
		ClearColor,
		ClearColor,
		ClearColor | ClearDepth,
		ClearColor | ClearDepth,
		0,
		ClearColor | ClearDepth | ClearStencil,
		ClearColor | ClearDepth | ClearStencil,
	}
	builds := 0
	var prev ClearMask
	for i, mask := range masks {
		want := i == 0 || mask != prev
		if got := m.NeedsRebuild(mask); got != want {
			t.Fatalf("step %d: NeedsRebuild(%v) = %v, want %v", i, mask, got, want)
		}
		if want {
			if _, err := m.Build(colorFmt, depthFmt, mask); err != nil {
				t.Fatalf("Build: %v", err)
			}
			builds++
		}
		prev = mask
	}

	if len(f.Passes) != builds {
		t.Errorf("device passes = %d, want %d", len(f.Passes), builds)
	}
	if m.Generation() != uint64(builds) {
		t.Errorf("Generation() = %d, want %d", m.Generation(), builds)
	}
	if m.Retired() != builds-1 {
		t.Errorf("Retired() = %d, want %d", m.Retired(), builds-1)
	}
	if f.Live(drivertest.KindRenderPass) != builds {
		t.Errorf("live passes = %d, want %d (retired passes are retained)", f.Live(drivertest.KindRenderPass), builds)
	}
}

func TestBuildFailureKeepsCurrent(t *testing.T) {
	f := drivertest.New()
	m := NewManager(f, false)
	first, err := m.Build(colorFmt, depthFmt, ClearColor)
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("rejected")
	f.Fail["CreateRenderPass"] = boom
	if _, err := m.Build(colorFmt, depthFmt, 0); !errors.Is(err, boom) {
		t.Fatalf("Build err = %v, want wrapped %v", err, boom)
	}
	if m.Current() != first {
		t.Error("failed build replaced the current pass")
	}
	if m.Stale(first.Generation) {
		t.Error("current generation reported stale")
	}
}

func TestStaleGeneration(t *testing.T) {
	m := NewManager(drivertest.New(), false)
	p1, _ := m.Build(colorFmt, gputypes.TextureFormatUndefined, 0)
	if _, err := m.Build(colorFmt, gputypes.TextureFormatUndefined, ClearColor); err != nil {
		t.Fatal(err)
	}
	if !m.Stale(p1.Generation) {
		t.Error("superseded generation not reported stale")
	}
}

func TestReclaim(t *testing.T) {
	f := drivertest.New()
	m := NewManager(f, true)

	p1, _ := m.Build(colorFmt, depthFmt, 0)
	m.Acquire(p1)
	m.Pin(p1)

	if _, err := m.Build(colorFmt, depthFmt, ClearColor); err != nil {
		t.Fatal(err)
	}
	if p1.Destroyed() {
		t.Fatal("referenced pass destroyed on rebuild")
	}

	m.Release(p1)
	if p1.Destroyed() {
		t.Fatal("pinned pass destroyed after last framebuffer release")
	}
	m.Unpin(p1)
	if !p1.Destroyed() {
		t.Fatal("unreferenced retired pass not reclaimed")
	}
	if m.Retired() != 0 {
		t.Errorf("Retired() = %d, want 0", m.Retired())
	}
	if f.DoubleDestroys != 0 {
		t.Errorf("DoubleDestroys = %d", f.DoubleDestroys)
	}
}

func TestNoReclaimRetainsForever(t *testing.T) {
	m := NewManager(drivertest.New(), false)
	p1, _ := m.Build(colorFmt, depthFmt, 0)
	m.Acquire(p1)
	if _, err := m.Build(colorFmt, depthFmt, ClearColor); err != nil {
		t.Fatal(err)
	}
	m.Release(p1)
	if p1.Destroyed() || m.Reclaim() != 0 {
		t.Error("retired pass freed without reclaim")
	}
}

func TestClose(t *testing.T) {
	f := drivertest.New()
	m := NewManager(f, false)
	p1, _ := m.Build(colorFmt, depthFmt, 0)
	p2, _ := m.Build(colorFmt, depthFmt, ClearColor)
	p3, _ := m.Build(colorFmt, depthFmt, ClearDepth)
	m.Pin(p2)

	m.Close()

	if !p1.Destroyed() || !p3.Destroyed() {
		t.Error("unpinned passes survived Close")
	}
	if p2.Destroyed() {
		t.Fatal("pinned pass destroyed by Close")
	}
	m.Unpin(p2)
	if !p2.Destroyed() {
		t.Error("pinned pass not destroyed after last Unpin")
	}
	if f.Live(drivertest.KindRenderPass) != 0 {
		t.Errorf("live passes = %d, want 0", f.Live(drivertest.KindRenderPass))
	}
	if _, err := m.Build(colorFmt, depthFmt, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Build after Close err = %v, want ErrClosed", err)
	}
}

func TestClearMaskString(t *testing.T) {
	tests := []struct {
		mask ClearMask
		want string
	}{
		{0, "none"},
		{ClearColor, "color"},
		{ClearColor | ClearStencil, "color|stencil"},
		{ClearColor | ClearDepth | ClearStencil, "color|depth|stencil"},
	}
	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.want {
			t.Errorf("ClearMask(%d).String() = %q, want %q", tt.mask, got, tt.want)
		}
	}
}

// Package renderpass builds the window's render pass from its clear
// configuration and keeps superseded passes alive while anything may still
// name them.
//
// Every build bumps a generation counter. The superseded pass moves to a
// retired pool instead of being destroyed, because framebuffers and cached
// pipeline state built against it may outlive the rebuild. With reclaim
// enabled, retired passes are destroyed once no framebuffer reference and
// no pin remains.
package renderpass

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// ErrClosed is returned by Build after Close.
var ErrClosed = errors.New("renderpass: manager closed")

// ClearMask selects which attachments the render pass clears on load.
type ClearMask uint8

// Clear mask bits.
const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
)

// String returns the set bits joined by "|", or "none".
func (m ClearMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&ClearColor != 0 {
		parts = append(parts, "color")
	}
	if m&ClearDepth != 0 {
		parts = append(parts, "depth")
	}
	if m&ClearStencil != 0 {
		parts = append(parts, "stencil")
	}
	return strings.Join(parts, "|")
}

// Pass is a built render pass and its bookkeeping.
type Pass struct {
	Handle      driver.RenderPass
	Generation  uint64
	Mask        ClearMask
	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat
	Desc        driver.RenderPassDesc

	refs      int
	pins      int
	destroyed bool
}

// Attachments returns the number of attachments of the pass.
func (p *Pass) Attachments() int { return len(p.Desc.Attachments) }

// Refs returns the number of framebuffers referencing the pass.
func (p *Pass) Refs() int { return p.refs }

// Pins returns the number of outstanding pins.
func (p *Pass) Pins() int { return p.pins }

// Destroyed reports whether the pass handle has been released.
func (p *Pass) Destroyed() bool { return p.destroyed }

func (p *Pass) destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.Handle.Destroy()
}

// Manager owns the current render pass and the retired pool.
type Manager struct {
	dev        driver.Device
	reclaim    bool
	current    *Pass
	retired    []*Pass
	generation uint64
	closed     bool
}

// NewManager returns a manager creating passes on dev. When reclaim is
// false, retired passes are kept until Close.
func NewManager(dev driver.Device, reclaim bool) *Manager {
	return &Manager{dev: dev, reclaim: reclaim}
}

// Current returns the active pass, or nil before the first Build.
func (m *Manager) Current() *Pass { return m.current }

// Generation returns the generation of the active pass. It is 0 before the
// first Build.
func (m *Manager) Generation() uint64 { return m.generation }

// Stale reports whether gen names a superseded pass.
func (m *Manager) Stale(gen uint64) bool { return gen != m.generation }

// Retired returns the number of superseded passes still alive.
func (m *Manager) Retired() int { return len(m.retired) }

// NeedsRebuild reports whether mask differs from the mask of the active
// pass. It is true before the first Build.
func (m *Manager) NeedsRebuild(mask ClearMask) bool {
	return m.current == nil || m.current.Mask != mask
}

// Build creates a pass for the given formats and clear mask and makes it
// current. A depth format of gputypes.TextureFormatUndefined builds a
// color-only pass. Device rejection is returned wrapped and leaves the
// previous pass current.
func (m *Manager) Build(color, depth gputypes.TextureFormat, mask ClearMask) (*Pass, error) {
	if m.closed {
		return nil, ErrClosed
	}

	desc := Describe(color, depth, mask)
	h, err := m.dev.CreateRenderPass(&desc)
	if err != nil {
		return nil, fmt.Errorf("renderpass: create: %w", err)
	}

	if old := m.current; old != nil {
		m.retired = append(m.retired, old)
		slogger().Warn("renderpass: retaining superseded render pass",
			"generation", old.Generation, "mask", old.Mask.String(), "retired", len(m.retired))
	}

	m.generation++
	m.current = &Pass{
		Handle:      h,
		Generation:  m.generation,
		Mask:        mask,
		ColorFormat: color,
		DepthFormat: depth,
		Desc:        desc,
	}
	slogger().Debug("renderpass: built",
		"generation", m.generation, "mask", mask.String(), "attachments", len(desc.Attachments))

	if m.reclaim {
		m.Reclaim()
	}
	return m.current, nil
}

// Describe returns the pass description for the given formats and mask.
//
// The color attachment clears or loads, always stores, and ends in the
// present layout. It starts undefined when cleared. The depth attachment
// loads or clears depth and stencil independently and starts undefined only
// when both are cleared.
func Describe(color, depth gputypes.TextureFormat, mask ClearMask) driver.RenderPassDesc {
	colorAtt := driver.AttachmentDesc{
		Format:        color,
		Load:          gputypes.LoadOpLoad,
		Store:         gputypes.StoreOpStore,
		InitialLayout: driver.LColorAttachment,
		FinalLayout:   driver.LPresentSrc,
	}
	if mask&ClearColor != 0 {
		colorAtt.Load = gputypes.LoadOpClear
		colorAtt.InitialLayout = driver.LUndefined
	}

	desc := driver.RenderPassDesc{
		Label:       "present_pass",
		Attachments: []driver.AttachmentDesc{colorAtt},
		Subpass:     driver.Subpass{Color: []int{0}, DepthStencil: -1},
	}
	if depth == gputypes.TextureFormatUndefined {
		return desc
	}

	depthAtt := driver.AttachmentDesc{
		Format:        depth,
		Load:          gputypes.LoadOpLoad,
		Store:         gputypes.StoreOpStore,
		StencilLoad:   gputypes.LoadOpLoad,
		StencilStore:  gputypes.StoreOpStore,
		InitialLayout: driver.LDepthStencilAttachment,
		FinalLayout:   driver.LDepthStencilAttachment,
	}
	if mask&ClearDepth != 0 {
		depthAtt.Load = gputypes.LoadOpClear
	}
	if mask&ClearStencil != 0 {
		depthAtt.StencilLoad = gputypes.LoadOpClear
	}
	if mask&(ClearDepth|ClearStencil) == ClearDepth|ClearStencil {
		depthAtt.InitialLayout = driver.LUndefined
	}

	desc.Attachments = append(desc.Attachments, depthAtt)
	desc.Subpass.DepthStencil = 1
	return desc
}

// Acquire records a framebuffer reference to p.
func (m *Manager) Acquire(p *Pass) { p.refs++ }

// Release drops a framebuffer reference to p.
func (m *Manager) Release(p *Pass) {
	if p.refs > 0 {
		p.refs--
	}
	m.maybeFree(p)
}

// Pin marks p as named by cached pipeline state.
func (m *Manager) Pin(p *Pass) { p.pins++ }

// Unpin drops a pin from p.
func (m *Manager) Unpin(p *Pass) {
	if p.pins > 0 {
		p.pins--
	}
	m.maybeFree(p)
}

// maybeFree destroys p right away if it is retired, unreferenced and either
// reclaim is on or the manager is closed.
func (m *Manager) maybeFree(p *Pass) {
	if p == m.current || p.refs > 0 || p.pins > 0 {
		return
	}
	if !m.reclaim && !m.closed {
		return
	}
	for i, r := range m.retired {
		if r == p {
			p.destroy()
			m.retired = append(m.retired[:i], m.retired[i+1:]...)
			return
		}
	}
}

// Reclaim destroys retired passes with no references and no pins and
// returns how many were destroyed. It does nothing unless reclaim is on.
func (m *Manager) Reclaim() int {
	if !m.reclaim {
		return 0
	}
	return m.sweep()
}

func (m *Manager) sweep() int {
	kept := m.retired[:0]
	n := 0
	for _, p := range m.retired {
		if p.refs == 0 && p.pins == 0 {
			p.destroy()
			n++
			continue
		}
		kept = append(kept, p)
	}
	clear(m.retired[len(kept):])
	m.retired = kept
	if n > 0 {
		slogger().Debug("renderpass: reclaimed retired passes", "count", n, "remaining", len(m.retired))
	}
	return n
}

// Close destroys the current pass and every unpinned retired pass. Pinned
// passes are destroyed when their last pin is dropped. The caller must
// ensure the queue is idle and framebuffers are gone.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.current != nil {
		if m.current.pins > 0 {
			m.retired = append(m.retired, m.current)
		} else {
			m.current.destroy()
		}
		m.current = nil
	}
	for _, p := range m.retired {
		p.refs = 0
	}
	m.sweep()
	if len(m.retired) > 0 {
		slogger().Warn("renderpass: pinned passes outlive close", "count", len(m.retired))
	}
}

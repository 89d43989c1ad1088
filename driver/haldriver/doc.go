// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package haldriver implements the driver contract on top of the gogpu/wgpu
// hardware abstraction layer.
//
// A Context owns one hal instance, adapter, device and queue. It records
// each frame into a single hal command encoder and submits it on EndFrame.
//
// The hal surface model differs from the explicit swapchain the driver
// contract describes: the surface hands out one texture per acquire rather
// than a fixed image list. Swapchains therefore expose image slots. Each
// acquire binds the acquired texture to the next slot, and views and
// framebuffers over a slot resolve to that texture when a render pass
// begins.
//
// Backends are selected through a name/priority registry:
//
//	import _ "github.com/gogpu/wgpu/hal/allbackends"
//
//	ctx, err := haldriver.Open(haldriver.Config{})        // best available
//	ctx, err := haldriver.OpenByName("noop", haldriver.Config{})
//	defer ctx.Close()
//
//	w := present.NewWindow(host)
//	err = w.Open(ctx.Provider())
package haldriver

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package driver defines the explicit-barrier device contract consumed by
// the present package.
//
// The contract mirrors the shape of low-level GPU APIs such as Vulkan:
// images carry a layout that the caller tracks and changes with explicit
// [Transition] barriers, render passes and framebuffers are separate
// objects, and presentation goes through a [Swapchain] whose images are
// owned by the presentation engine.
//
// Implementations:
//
//   - driver/haldriver implements the contract on top of gogpu/wgpu's HAL
//     (Vulkan, Metal, DX12, GLES, software and noop backends).
//   - driver/drivertest provides a recording in-memory fake for tests.
//
// All handle types embed [Destroyer]. Handles are not safe for concurrent
// use; the frame controller drives them from a single draw goroutine.
package driver

package main

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

const triangleShader = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(0.0, 0.6),
        vec2<f32>(-0.6, -0.6),
        vec2<f32>(0.6, -0.6),
    );
    return vec4<f32>(pos[i], 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.5, 0.1, 1.0);
}
`

// triangle is a pipeline drawing one hard-coded triangle.
type triangle struct {
	device   hal.Device
	module   hal.ShaderModule
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

// shaderSource compiles WGSL to SPIR-V for the Vulkan backend and passes it
// through for the others.
func shaderSource(backend string) (hal.ShaderSource, error) {
	if backend != "vulkan" {
		return hal.ShaderSource{WGSL: triangleShader}, nil
	}
	spirvBytes, err := naga.Compile(triangleShader)
	if err != nil {
		return hal.ShaderSource{}, fmt.Errorf("compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

func newTriangle(device hal.Device, backend string, color, depth gputypes.TextureFormat) (*triangle, error) {
	src, err := shaderSource(backend)
	if err != nil {
		return nil, err
	}
	tr := &triangle{device: device}
	tr.module, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "presentdemo_triangle_shader",
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	tr.layout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "presentdemo_triangle_layout",
	})
	if err != nil {
		tr.destroy()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	var ds *hal.DepthStencilState
	if depth != gputypes.TextureFormatUndefined {
		ds = &hal.DepthStencilState{
			Format:       depth,
			DepthCompare: gputypes.CompareFunctionAlways,
			StencilFront: hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
			StencilBack:  hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
		}
	}
	tr.pipeline, err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "presentdemo_triangle_pipeline",
		Layout: tr.layout,
		Vertex: hal.VertexState{
			Module:     tr.module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     tr.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    color,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		DepthStencil: ds,
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		tr.destroy()
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	return tr, nil
}

func (tr *triangle) draw(pass hal.RenderPassEncoder) {
	if pass == nil {
		return
	}
	pass.SetPipeline(tr.pipeline)
	pass.Draw(3, 1, 0, 0)
}

func (tr *triangle) destroy() {
	if tr.pipeline != nil {
		tr.device.DestroyRenderPipeline(tr.pipeline)
		tr.pipeline = nil
	}
	if tr.layout != nil {
		tr.device.DestroyPipelineLayout(tr.layout)
		tr.layout = nil
	}
	if tr.module != nil {
		tr.device.DestroyShaderModule(tr.module)
		tr.module = nil
	}
}

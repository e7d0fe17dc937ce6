package pipeline

import (
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithShader sets the reflected shader for this pipeline.
//
// Parameters:
//   - s: a render shader for render pipelines or a compute shader for compute pipelines
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shader for this pipeline
func WithShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shader = s
	}
}

// WithColorTargets sets the formats of the render targets, one per fragment output location.
//
// Parameters:
//   - formats: the render target formats in location order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color target formats for this pipeline
func WithColorTargets(formats ...wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormats = append([]wgpu.TextureFormat(nil), formats...)
	}
}

// WithDepth enables a depth attachment.
//
// Parameters:
//   - format: the depth buffer format
//   - write: whether the pipeline writes depth
//   - compare: the depth test function
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth state for this pipeline
func WithDepth(format wgpu.TextureFormat, write bool, compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
		p.depthWriteEnabled = write
		p.depthCompare = compare
	}
}

// WithDepthBias sets the depth bias parameters for this pipeline.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias parameters for this pipeline
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (wgpu.CullModeNone, wgpu.CullModeBack or wgpu.CullModeFront)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

package renderer

import (
	"github.com/Carmen-Shannon/oxy-gi/engine/profiler"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithVoxelResolution sets the edge length of the finest voxel cascade. It must be a power of
// two; Initialize rejects anything else.
//
// Parameters:
//   - res: the finest cascade resolution, default 128
//
// Returns:
//   - RendererBuilderOption: a function that applies the resolution to a renderer
func WithVoxelResolution(res int) RendererBuilderOption {
	return func(r *renderer) {
		r.voxelResolution = res
	}
}

// WithCascadeCount sets the number of voxel cascades. The shaders bind exactly 5.
func WithCascadeCount(count int) RendererBuilderOption {
	return func(r *renderer) {
		r.cascadeCount = count
	}
}

// WithWorldVolumeBoundary sets the half extent of the voxelized world volume.
//
// Parameters:
//   - boundary: world units from the origin to each face of the volume, default 50
//
// Returns:
//   - RendererBuilderOption: a function that applies the boundary to a renderer
func WithWorldVolumeBoundary(boundary float32) RendererBuilderOption {
	return func(r *renderer) {
		r.worldVolumeBoundary = boundary
	}
}

// WithSHGridResolution sets the cell count per axis of the SH irradiance grid.
func WithSHGridResolution(res int) RendererBuilderOption {
	return func(r *renderer) {
		r.shGridResolution = res
	}
}

// WithConeIterations sets the number of steps every traced cone takes.
func WithConeIterations(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.coneIterations = n
	}
}

// WithShadowMapSize sets the edge length of the square shadow map. Zero, the default, uses
// the render target size.
func WithShadowMapSize(size int) RendererBuilderOption {
	return func(r *renderer) {
		r.shadowMapSize = size
	}
}

// WithStaticShadows controls whether the shadow map is rendered once and reused until the
// sun moves or InvalidateShadows is called. Defaults to true.
func WithStaticShadows(static bool) RendererBuilderOption {
	return func(r *renderer) {
		r.staticShadows = static
	}
}

// WithFrustumCulling controls whether the GBuffer pass skips objects outside the camera
// frustum. Defaults to true.
func WithFrustumCulling(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.frustumCulling = enabled
	}
}

// WithVolumetricLighting enables or disables the volumetric lighting pass. Defaults to true.
func WithVolumetricLighting(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.volumetricLighting = enabled
	}
}

// WithFXAA enables or disables the FXAA pass. Defaults to true.
func WithFXAA(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.fxaa = enabled
	}
}

// WithLUTContribution sets how much of the color grading table is blended in, 0 to 1.
func WithLUTContribution(contribution float32) RendererBuilderOption {
	return func(r *renderer) {
		r.lutContribution = max(0, min(1, contribution))
	}
}

// WithNearFar sets the NearZ and FarZ written to the pass constants.
//
// Parameters:
//   - near: the near value, default 0.1
//   - far: the far value, default 500
//
// Returns:
//   - RendererBuilderOption: a function that applies the values to a renderer
func WithNearFar(near, far float32) RendererBuilderOption {
	return func(r *renderer) {
		if near > 0 && far > near {
			r.nearZ, r.farZ = near, far
		}
	}
}

// WithProfiler records the CPU time of every pass into p.
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}

// WithObjectPacking sets how many workers pack object constants and how many dirty objects a
// frame needs before packing goes parallel.
//
// Parameters:
//   - workers: the maximum number of pack workers, default 4
//   - threshold: the dirty object count at which packing is split, default 1024
//
// Returns:
//   - RendererBuilderOption: a function that applies the packing settings to a renderer
func WithObjectPacking(workers, threshold int) RendererBuilderOption {
	return func(r *renderer) {
		if workers > 0 {
			r.packWorkers = workers
		}
		if threshold > 0 {
			r.packThreshold = threshold
		}
	}
}

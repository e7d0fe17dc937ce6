package pass

import (
	"errors"
	"fmt"
	"math"
)

// Voxel cone-tracing defaults.
const (
	DefaultVoxelResolution     = 128
	DefaultCascadeCount        = 5
	DefaultWorldVolumeBoundary = 50
	DefaultSHGridResolution    = 8
	DefaultConeIterations      = 64

	// ConeHalfAngle is the half-angle of every traced cone.
	ConeHalfAngle = math.Pi / 6
)

// ErrInvalidVoxelConfig is returned for voxel settings the cascades cannot be built from.
var ErrInvalidVoxelConfig = errors.New("invalid voxel configuration")

// CascadeResolutions returns the edge length of every voxel cascade, finest first. Each cascade
// halves the previous one.
//
// Parameters:
//   - res: the finest resolution, a power of two
//   - levels: the number of cascades
//
// Returns:
//   - []int: the resolutions
//   - error: ErrInvalidVoxelConfig if res is not a power of two or too small for levels
func CascadeResolutions(res, levels int) ([]int, error) {
	if res <= 0 || res&(res-1) != 0 {
		return nil, fmt.Errorf("%w: resolution %d is not a power of two", ErrInvalidVoxelConfig, res)
	}
	if levels <= 0 {
		return nil, fmt.Errorf("%w: %d cascades", ErrInvalidVoxelConfig, levels)
	}
	if res>>(levels-1) < 1 {
		return nil, fmt.Errorf("%w: resolution %d cannot be halved %d times", ErrInvalidVoxelConfig, res, levels-1)
	}
	out := make([]int, levels)
	for i := range out {
		out[i] = res >> i
	}
	return out, nil
}

// VoxelSize returns the world-space edge length of one voxel of a cascade with resolution res.
func VoxelSize(worldVolumeBoundary float32, res int) float32 {
	return 2 * worldVolumeBoundary / float32(res)
}

// ConeStepSize returns the base distance a cone advances per iteration. Shaders scale it per
// cascade by 2^level / coneIterations.
func ConeStepSize(worldVolumeBoundary float32, voxelResolution int) float32 {
	return float32(32 * float64(worldVolumeBoundary) / (float64(voxelResolution) / 2 * math.Tan(ConeHalfAngle)))
}

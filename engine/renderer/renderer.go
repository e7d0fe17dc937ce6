package renderer

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/camera"
	"github.com/Carmen-Shannon/oxy-gi/engine/light"
	"github.com/Carmen-Shannon/oxy-gi/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxy-gi/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Values written to every PassConstants regardless of the camera.
const (
	DefaultLUTContribution = 1.0
	DefaultNearZ           = 0.1
	DefaultFarZ            = 500.0
)

// ErrInvalidConfig is returned by Initialize for settings no pass chain can be built from.
var ErrInvalidConfig = errors.New("invalid renderer configuration")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	voxelResolution     int
	cascadeCount        int
	worldVolumeBoundary float32
	shGridResolution    int
	coneIterations      int
	shadowMapSize       int
	staticShadows       bool
	frustumCulling      bool
	volumetricLighting  bool
	fxaa                bool
	lutContribution     float32
	nearZ, farZ         float32
	profiler            *profiler.Profiler
	packWorkers         int
	packThreshold       int

	device           gpu.Device
	width, height    int
	backBufferFormat wgpu.TextureFormat
	depthFormat      wgpu.TextureFormat
	scene            *scene.Scene

	samplers    bind_group_provider.StaticSamplers
	frameLayout gpu.BindGroupLayout
	depth       gpu.Texture

	passes       []pass.RenderPass
	shadow       *pass.ShadowMapPass
	gbuffer      *pass.GBufferPass
	shadowsValid bool
	// shadowGen counts invalidations so a stale submission cannot validate a newer request.
	shadowGen   uint64
	sunRevision uint64

	packPool worker.DynamicWorkerPool
}

// Renderer is the pipeline context: it owns the shared depth buffer, the static samplers, the
// frame bind-group layout and the fixed chain of render passes, and writes the per-frame
// constants the passes read.
//
// Pass order: ShadowMap, GBuffer, DeferredShading, VoxelInjection, SHIndirect,
// IndirectLighting, SkyBox, VolumetricLighting (optional), FXAA (optional), ToneMapping,
// ColorGrading.
type Renderer interface {
	// Initialize validates the configuration, creates the shared resources and builds every
	// pass, threading each pass's outputs into the inputs of the passes after it.
	//
	// Parameters:
	//   - device: the device to create GPU objects on
	//   - width, height: the render target size in pixels
	//   - backBufferFormat: the swap chain format
	//   - depthFormat: the format of the shared depth buffer
	//   - s: the scene to render
	//
	// Returns:
	//   - error: ErrInvalidConfig wrapped with the offending setting; GPU failures panic
	Initialize(device gpu.Device, width, height int, backBufferFormat, depthFormat wgpu.TextureFormat, s *scene.Scene) error

	// Resize rebuilds every pass for a new render target size. The scene is kept.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - error: ErrInvalidConfig for a zero size
	Resize(width, height int) error

	// Passes returns the passes in execution order.
	Passes() []pass.RenderPass

	// Pass returns the pass with the given name, or nil.
	Pass(name string) pass.RenderPass

	// FrameLayout returns the group 0 layout shared by every pipeline.
	FrameLayout() gpu.BindGroupLayout

	// DepthBuffer returns the shared depth buffer.
	DepthBuffer() gpu.Texture

	// FinalOutput returns the texture CopyToBackBuffer copies from.
	FinalOutput() gpu.Texture

	// NewFrameRing allocates the frame resources sized for the current scene.
	//
	// Returns:
	//   - *frame_resource.Ring: the ring
	//   - error: an error if a constant buffer could not be created
	NewFrameRing() (*frame_resource.Ring, error)

	// Execute records every pass once in order. With static shadows the shadow map pass is
	// recorded until a frame containing it has been submitted, and again after
	// InvalidateShadows.
	//
	// Parameters:
	//   - cmd: the command list to record into
	//   - frame: the frame resource whose constants were updated this frame
	//
	// Returns:
	//   - func(): call once cmd has been submitted; a discarded list must not call it
	Execute(cmd gpu.CommandList, frame *frame_resource.FrameResource) (submitted func())

	// InvalidateShadows makes the next Execute re-render the shadow map.
	InvalidateShadows()

	// CopyToBackBuffer copies the final output into backBuffer and returns both to their
	// resting states, GenericRead and Present.
	//
	// Parameters:
	//   - cmd: the command list to record into
	//   - backBuffer: the acquired back buffer, in state Present
	CopyToBackBuffer(cmd gpu.CommandList, backBuffer gpu.Texture)

	// UpdateObjectCBs uploads the constants of every object still owed to a frame resource and
	// decrements its dirty count.
	//
	// Parameters:
	//   - s: the scene
	//   - frame: the frame resource to upload to
	UpdateObjectCBs(s *scene.Scene, frame *frame_resource.FrameResource)

	// UpdateMaterialCBs uploads the constants of every material still owed to a frame resource
	// and decrements its dirty count.
	//
	// Parameters:
	//   - s: the scene
	//   - frame: the frame resource to upload to
	UpdateMaterialCBs(s *scene.Scene, frame *frame_resource.FrameResource)

	// UpdateMainPassCB builds and uploads the pass constants of one frame and, with frustum
	// culling on, hands the GBuffer pass the objects inside the camera frustum. The shadow
	// pass always draws every object.
	//
	// Parameters:
	//   - cam: the camera, with current matrices
	//   - sun: the sun light
	//   - timer: the frame timer
	//   - frame: the frame resource to upload to
	UpdateMainPassCB(cam camera.Camera, sun light.Sun, timer *common.GameTimer, frame *frame_resource.FrameResource)

	// MainPassConstants builds the pass constants UpdateMainPassCB uploads.
	MainPassConstants(cam camera.Camera, sun light.Sun, timer *common.GameTimer) frame_resource.PassConstants

	// Release releases every pass and owned resource. It is safe to call more than once.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer with the given options. Nothing is created on the GPU until
// Initialize.
//
// Parameters:
//   - options: functional options configuring the renderer
//
// Returns:
//   - Renderer: the renderer
func NewRenderer(options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:                  &sync.Mutex{},
		voxelResolution:     pass.DefaultVoxelResolution,
		cascadeCount:        pass.DefaultCascadeCount,
		worldVolumeBoundary: pass.DefaultWorldVolumeBoundary,
		shGridResolution:    pass.DefaultSHGridResolution,
		coneIterations:      pass.DefaultConeIterations,
		staticShadows:       true,
		frustumCulling:      true,
		volumetricLighting:  true,
		fxaa:                true,
		lutContribution:     DefaultLUTContribution,
		nearZ:               DefaultNearZ,
		farZ:                DefaultFarZ,
		packWorkers:         4,
		packThreshold:       1024,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// validate checks every setting the pass chain depends on before any GPU work.
func (r *renderer) validate(width, height int, depthFormat wgpu.TextureFormat, s *scene.Scene) error {
	switch {
	case width <= 0 || height <= 0:
		return fmt.Errorf("%w: render target %dx%d", ErrInvalidConfig, width, height)
	case !gpu.IsDepthFormat(depthFormat):
		return fmt.Errorf("%w: depth format %v", ErrInvalidConfig, depthFormat)
	case s == nil:
		return fmt.Errorf("%w: no scene", ErrInvalidConfig)
	case r.cascadeCount != pass.DefaultCascadeCount:
		return fmt.Errorf("%w: %d cascades, shaders bind %d", ErrInvalidConfig, r.cascadeCount, pass.DefaultCascadeCount)
	case r.worldVolumeBoundary <= 0:
		return fmt.Errorf("%w: world volume boundary %v", ErrInvalidConfig, r.worldVolumeBoundary)
	case r.shGridResolution <= 0:
		return fmt.Errorf("%w: SH grid resolution %d", ErrInvalidConfig, r.shGridResolution)
	case r.coneIterations <= 0:
		return fmt.Errorf("%w: %d cone iterations", ErrInvalidConfig, r.coneIterations)
	case r.shadowMapSize < 0:
		return fmt.Errorf("%w: shadow map size %d", ErrInvalidConfig, r.shadowMapSize)
	}
	if _, err := pass.CascadeResolutions(r.voxelResolution, r.cascadeCount); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (r *renderer) Initialize(device gpu.Device, width, height int, backBufferFormat, depthFormat wgpu.TextureFormat, s *scene.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(width, height, depthFormat, s); err != nil {
		return err
	}
	r.release()

	start := time.Now()
	r.device = device
	r.width, r.height = width, height
	r.backBufferFormat, r.depthFormat = backBufferFormat, depthFormat
	r.scene = s

	var err error
	if r.samplers, err = bind_group_provider.NewStaticSamplers(device); err != nil {
		log.Panicf("[Renderer] creating static samplers: %v", err)
	}
	if r.frameLayout, err = frame_resource.NewFrameLayout(device); err != nil {
		log.Panicf("[Renderer] creating frame layout: %v", err)
	}
	r.buildPasses()

	log.Printf("[Renderer] %dx%d, %d passes, voxels %d^3 x %d cascades in %v",
		width, height, len(r.passes), r.voxelResolution, r.cascadeCount, time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: render target %dx%d", ErrInvalidConfig, width, height)
	}
	if r.device == nil {
		return fmt.Errorf("%w: resize before Initialize", ErrInvalidConfig)
	}
	if width == r.width && height == r.height {
		return nil
	}
	r.releasePasses()
	r.width, r.height = width, height
	r.buildPasses()
	return nil
}

// buildPasses creates the depth buffer and every pass in order. Caller must hold the mutex.
func (r *renderer) buildPasses() {
	depth, err := r.device.CreateTexture(gpu.TextureDesc{
		Label:         "Depth Stencil",
		Width:         uint32(r.width),
		Height:        uint32(r.height),
		DepthOrLayers: 1,
		MipLevels:     1,
		Format:        r.depthFormat,
		Dimension:     gpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		InitialState:  gpu.StateGenericRead,
	})
	if err != nil {
		log.Panicf("[Renderer] creating depth buffer: %v", err)
	}
	r.depth = depth

	base := pass.Config{
		Width:            r.width,
		Height:           r.height,
		BackBufferFormat: r.backBufferFormat,
		DepthFormat:      r.depthFormat,
		DepthBuffer:      r.depth,
		FrameLayout:      r.frameLayout,
		Samplers:         r.samplers,
		Scene:            r.scene,
		VoxelResolution:  r.voxelResolution,
		CascadeCount:     r.cascadeCount,
		SHGridResolution: r.shGridResolution,
		ShadowMapSize:    r.shadowMapSize,
	}
	add := func(p pass.RenderPass, configure func(*pass.Config)) pass.RenderPass {
		cfg := base
		if configure != nil {
			configure(&cfg)
		}
		pass.Initialize(p, r.device, cfg)
		r.passes = append(r.passes, p)
		return p
	}
	inputs := func(textures ...gpu.Texture) func(*pass.Config) {
		return func(c *pass.Config) { c.InputBuffers = textures }
	}

	r.shadow = pass.NewShadowMapPass()
	add(r.shadow, nil)
	shadowMap := r.shadow.OutputBuffers()[0]

	r.gbuffer = pass.NewGBufferPass()
	gbuffers := add(r.gbuffer, nil).OutputBuffers()

	lighting := add(pass.NewDeferredShadingPass(), func(c *pass.Config) {
		c.InputBuffers = []gpu.Texture{shadowMap}
		c.GBuffers = gbuffers
	}).OutputBuffers()[0]

	grids := add(pass.NewVoxelInjectionPass(), inputs(lighting)).OutputBuffers()

	sh := add(pass.NewSHIndirectPass(), func(c *pass.Config) {
		c.VoxelGrids = grids
	}).OutputBuffers()

	hdr := add(pass.NewIndirectLightingPass(), func(c *pass.Config) {
		c.InputBuffers = append([]gpu.Texture{lighting}, sh...)
		c.GBuffers = gbuffers
	}).OutputBuffers()[0]

	hdr = add(pass.NewSkyBoxPass(), inputs(hdr)).OutputBuffers()[0]
	if r.volumetricLighting {
		hdr = add(pass.NewVolumetricLightingPass(), inputs(hdr, shadowMap)).OutputBuffers()[0]
	}
	if r.fxaa {
		hdr = add(pass.NewFXAAPass(), inputs(hdr)).OutputBuffers()[0]
	}
	ldr := add(pass.NewToneMappingPass(), inputs(hdr)).OutputBuffers()[0]
	add(pass.NewColorGradingPass(), inputs(ldr))

	r.invalidateShadows()
}

func (r *renderer) Passes() []pass.RenderPass {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pass.RenderPass(nil), r.passes...)
}

func (r *renderer) Pass(name string) pass.RenderPass {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.passes {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (r *renderer) FrameLayout() gpu.BindGroupLayout {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameLayout
}

func (r *renderer) DepthBuffer() gpu.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth
}

func (r *renderer) FinalOutput() gpu.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalOutput()
}

func (r *renderer) finalOutput() gpu.Texture {
	if len(r.passes) == 0 {
		return nil
	}
	return r.passes[len(r.passes)-1].OutputBuffers()[0]
}

func (r *renderer) NewFrameRing() (*frame_resource.Ring, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return nil, fmt.Errorf("%w: frame ring before Initialize", ErrInvalidConfig)
	}
	return frame_resource.NewRing(r.device, r.frameLayout, 1, max(len(r.scene.Objects), 1), max(len(r.scene.Materials), 1))
}

func (r *renderer) Execute(cmd gpu.CommandList, frame *frame_resource.FrameResource) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordedShadows := false
	for _, p := range r.passes {
		if p == pass.RenderPass(r.shadow) {
			if r.staticShadows && r.shadowsValid {
				continue
			}
			recordedShadows = true
		}
		var stop func()
		if r.profiler != nil {
			stop = r.profiler.TimePass(p.Name())
		}
		p.Execute(cmd, r.depth, frame)
		if stop != nil {
			stop()
		}
	}

	gen := r.shadowGen
	return func() {
		if !recordedShadows {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.shadowGen == gen {
			r.shadowsValid = true
		}
	}
}

func (r *renderer) InvalidateShadows() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateShadows()
}

// invalidateShadows requires r.mu.
func (r *renderer) invalidateShadows() {
	r.shadowsValid = false
	r.shadowGen++
}

func (r *renderer) CopyToBackBuffer(cmd gpu.CommandList, backBuffer gpu.Texture) {
	r.mu.Lock()
	out := r.finalOutput()
	r.mu.Unlock()
	if out == nil {
		log.Panicf("[Renderer] CopyToBackBuffer before Initialize")
	}

	cmd.ResourceBarrier(
		gpu.Transition(out, gpu.StateGenericRead, gpu.StateCopySource),
		gpu.Transition(backBuffer, gpu.StatePresent, gpu.StateCopyDest),
	)
	cmd.CopyTexture(out, backBuffer)
	cmd.ResourceBarrier(
		gpu.Transition(out, gpu.StateCopySource, gpu.StateGenericRead),
		gpu.Transition(backBuffer, gpu.StateCopyDest, gpu.StatePresent),
	)
}

func (r *renderer) UpdateObjectCBs(s *scene.Scene, frame *frame_resource.FrameResource) {
	dirty := make([]*scene.RenderObject, 0, len(s.Objects))
	for _, o := range s.Objects {
		if o.NumFramesDirty > 0 {
			dirty = append(dirty, o)
		}
	}
	packed := r.packObjects(dirty)
	for i, o := range dirty {
		frame.ObjectCB.CopyData(o.ObjCBIndex, packed[i])
		o.MarkFrameUpdated()
	}
}

// packObjects builds the constants of objects, splitting large batches across the pack pool.
func (r *renderer) packObjects(objects []*scene.RenderObject) []frame_resource.ObjectConstants {
	out := make([]frame_resource.ObjectConstants, len(objects))
	if len(objects) < r.packThreshold || r.packWorkers <= 1 {
		for i, o := range objects {
			out[i] = o.Constants()
		}
		return out
	}

	chunk := (len(objects) + r.packWorkers - 1) / r.packWorkers
	var wg sync.WaitGroup
	pool := r.pool()
	for id, lo := 0, 0; lo < len(objects); id, lo = id+1, lo+chunk {
		hi := min(lo+chunk, len(objects))
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for i := lo; i < hi; i++ {
					out[i] = objects[i].Constants()
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return out
}

// pool creates the object packing pool on first use.
func (r *renderer) pool() worker.DynamicWorkerPool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.packPool == nil {
		r.packPool = worker.NewDynamicWorkerPool(r.packWorkers, 64, 1*time.Second)
	}
	return r.packPool
}

func (r *renderer) UpdateMaterialCBs(s *scene.Scene, frame *frame_resource.FrameResource) {
	for _, m := range s.Materials {
		if m.NumFramesDirty > 0 {
			frame.MaterialCB.CopyData(m.MatCBIndex, m.Constants())
			m.MarkFrameUpdated()
		}
	}
}

func (r *renderer) UpdateMainPassCB(cam camera.Camera, sun light.Sun, timer *common.GameTimer, frame *frame_resource.FrameResource) {
	pc := r.MainPassConstants(cam, sun, timer)

	r.mu.Lock()
	if rev := sun.Revision(); rev != r.sunRevision {
		r.sunRevision = rev
		r.invalidateShadows()
	}
	if r.gbuffer != nil && r.scene != nil {
		if r.frustumCulling {
			r.gbuffer.SetVisibleObjects(r.scene.VisibleObjects(cam.Frustum()))
		} else {
			r.gbuffer.SetVisibleObjects(nil)
		}
	}
	r.mu.Unlock()

	frame.PassCB.CopyData(0, pc)
}

func (r *renderer) MainPassConstants(cam camera.Camera, sun light.Sun, timer *common.GameTimer) frame_resource.PassConstants {
	r.mu.Lock()
	width, height := float32(r.width), float32(r.height)
	pc := frame_resource.PassConstants{
		View:                cam.View(),
		InvView:             cam.InvView(),
		Proj:                cam.Proj(),
		InvProj:             cam.InvProj(),
		ViewProj:            cam.ViewProj(),
		InvViewProj:         cam.InvViewProj(),
		SkyBoxMatrix:        cam.InvView(),
		EyePosW:             cam.Position(),
		LUTContribution:     r.lutContribution,
		RenderTargetSize:    [2]float32{width, height},
		InvRenderTargetSize: [2]float32{1 / max(width, 1), 1 / max(height, 1)},
		NearZ:               r.nearZ,
		FarZ:                r.farZ,
		VoxelParams: [4]float32{
			r.worldVolumeBoundary,
			float32(r.coneIterations),
			pass.ConeStepSize(r.worldVolumeBoundary, r.voxelResolution),
			0,
		},
	}
	r.mu.Unlock()

	if timer != nil {
		pc.TotalTime = timer.TotalTime()
		pc.DeltaTime = timer.DeltaTime()
	}

	strength, dir := sun.Strength(), sun.Direction()
	pc.SunLightStrength = [4]float32{strength[0], strength[1], strength[2], sun.Intensity()}
	pc.SunLightDirection = [4]float32{dir[0], dir[1], dir[2], 1}

	shadow := sun.ShadowMatrices()
	pc.ShadowViewProj = shadow.ViewProj
	pc.ShadowTransform = shadow.Transform
	return pc
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release()
	if r.packPool != nil {
		r.packPool.Stop()
		r.packPool = nil
	}
}

// releasePasses releases the passes in reverse creation order, then the depth buffer.
func (r *renderer) releasePasses() {
	for i := len(r.passes) - 1; i >= 0; i-- {
		r.passes[i].Release()
	}
	r.passes = nil
	r.shadow = nil
	r.gbuffer = nil
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
}

// release frees everything Initialize created. Caller must hold the mutex.
func (r *renderer) release() {
	r.releasePasses()
	if r.frameLayout != nil {
		r.frameLayout.Release()
		r.frameLayout = nil
	}
	if r.samplers != nil {
		r.samplers.Release()
		r.samplers = nil
	}
}

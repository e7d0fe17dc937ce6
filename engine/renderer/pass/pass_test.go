package pass

import (
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/loader"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-gi/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	testWidth  = 64
	testHeight = 48
)

func texel(c byte) common.TextureStagingData {
	return common.TextureStagingData{Pixels: []byte{c, c, c, 255}, Width: 1, Height: 1}
}

func newTestScene(t *testing.T, dev *gputest.Device) *scene.Scene {
	t.Helper()
	tri := &common.MeshData{
		Name: "tri",
		Vertices: []common.Vertex{
			{Position: [3]float32{0, 0, 0}},
			{Position: [3]float32{0, 1, 0}},
			{Position: [3]float32{1, 0, 0}},
		},
		Indices:   []uint32{0, 1, 2},
		Submeshes: []common.SubmeshData{{Name: "tri", IndexCount: 3}},
	}
	assets := &loader.SceneAssets{
		Desc: &loader.SceneDesc{
			Name:           "passes",
			LightDirection: [3]float32{0, -1, 0},
			LightStrength:  [3]float32{1, 1, 1},
			Objects: []loader.ObjectDesc{
				{Mesh: "tri", DiffuseOpacity: "a", NormalRoughness: "n", Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
				{Mesh: "tri", DiffuseOpacity: "b", NormalRoughness: "n", Position: [3]float32{2, 0, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
			},
		},
		Meshes:   map[string]*common.MeshData{"tri": tri},
		Textures: map[string]common.TextureStagingData{"a": texel(10), "b": texel(20), "n": texel(128)},
	}
	for i := range assets.SkyBox {
		assets.SkyBox[i] = texel(200)
	}
	s, err := scene.BuildScene(dev, assets)
	if err != nil {
		t.Fatalf("BuildScene: %v", err)
	}
	return s
}

// fixture is a device, a scene and everything a pass chain needs to be initialized against.
type fixture struct {
	dev   *gputest.Device
	scene *scene.Scene
	cfg   Config
	frame *frame_resource.FrameResource
	depth gpu.Texture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := gputest.NewDevice()
	s := newTestScene(t, dev)
	layout, err := frame_resource.NewFrameLayout(dev)
	if err != nil {
		t.Fatalf("NewFrameLayout: %v", err)
	}
	samplers, err := bind_group_provider.NewStaticSamplers(dev)
	if err != nil {
		t.Fatalf("NewStaticSamplers: %v", err)
	}
	frame, err := frame_resource.NewFrameResource(dev, layout, 0, 1, len(s.Objects), len(s.Materials))
	if err != nil {
		t.Fatalf("NewFrameResource: %v", err)
	}
	depth, err := dev.CreateTexture(gpu.TextureDesc{
		Label:        "Depth Stencil",
		Width:        testWidth,
		Height:       testHeight,
		Format:       wgpu.TextureFormatDepth24PlusStencil8,
		Usage:        wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		InitialState: gpu.StateGenericRead,
	})
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	return &fixture{
		dev:   dev,
		scene: s,
		frame: frame,
		depth: depth,
		cfg: Config{
			Width:            testWidth,
			Height:           testHeight,
			BackBufferFormat: wgpu.TextureFormatBGRA8Unorm,
			DepthFormat:      wgpu.TextureFormatDepth24PlusStencil8,
			DepthBuffer:      depth,
			FrameLayout:      layout,
			Samplers:         samplers,
			Scene:            s,
			ShadowMapSize:    32,
		},
	}
}

// chain initializes every pass the way the renderer wires them and returns them in execution order.
func (f *fixture) chain(t *testing.T) []RenderPass {
	t.Helper()
	with := func(inputs ...gpu.Texture) Config {
		c := f.cfg
		c.InputBuffers = inputs
		return c
	}

	shadow := NewShadowMapPass()
	Initialize(shadow, f.dev, with())
	gbuf := NewGBufferPass()
	Initialize(gbuf, f.dev, with())

	deferredCfg := with(shadow.OutputBuffers()[0])
	deferredCfg.GBuffers = gbuf.OutputBuffers()
	deferred := NewDeferredShadingPass()
	Initialize(deferred, f.dev, deferredCfg)
	lighting := deferred.OutputBuffers()[0]

	voxels := NewVoxelInjectionPass()
	Initialize(voxels, f.dev, with(lighting))

	shCfg := with()
	shCfg.VoxelGrids = voxels.OutputBuffers()
	sh := NewSHIndirectPass()
	Initialize(sh, f.dev, shCfg)

	indirectCfg := with(append([]gpu.Texture{lighting}, sh.OutputBuffers()...)...)
	indirectCfg.GBuffers = gbuf.OutputBuffers()
	indirect := NewIndirectLightingPass()
	Initialize(indirect, f.dev, indirectCfg)

	sky := NewSkyBoxPass()
	Initialize(sky, f.dev, with(indirect.OutputBuffers()[0]))
	vol := NewVolumetricLightingPass()
	Initialize(vol, f.dev, with(sky.OutputBuffers()[0], shadow.OutputBuffers()[0]))
	fxaa := NewFXAAPass()
	Initialize(fxaa, f.dev, with(vol.OutputBuffers()[0]))
	tone := NewToneMappingPass()
	Initialize(tone, f.dev, with(fxaa.OutputBuffers()[0]))
	grade := NewColorGradingPass()
	Initialize(grade, f.dev, with(tone.OutputBuffers()[0]))

	return []RenderPass{shadow, gbuf, deferred, voxels, sh, indirect, sky, vol, fxaa, tone, grade}
}

func newCommandList(t *testing.T, dev *gputest.Device) *gputest.CommandList {
	t.Helper()
	cmd, err := dev.CreateCommandList("test")
	if err != nil {
		t.Fatal(err)
	}
	return cmd.(*gputest.CommandList)
}

func TestDispatchCount(t *testing.T) {
	tests := []struct {
		extent int
		size   uint32
		want   uint32
	}{
		{0, 16, 0},
		{1, 16, 1},
		{16, 16, 1},
		{17, 16, 2},
		{1280, 16, 80},
		{720, 16, 45},
		{8, 4, 2},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := dispatchCount(tt.extent, tt.size); got != tt.want {
			t.Errorf("dispatchCount(%d, %d) = %d, want %d", tt.extent, tt.size, got, tt.want)
		}
	}
}

func TestCascadeResolutions(t *testing.T) {
	got, err := CascadeResolutions(DefaultVoxelResolution, DefaultCascadeCount)
	if err != nil {
		t.Fatalf("CascadeResolutions: %v", err)
	}
	want := []int{128, 64, 32, 16, 8}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cascade %d = %d, want %d", i, got[i], want[i])
		}
	}

	for _, bad := range []struct{ res, levels int }{{100, 5}, {0, 5}, {128, 0}, {8, 5}} {
		if _, err := CascadeResolutions(bad.res, bad.levels); err == nil {
			t.Errorf("CascadeResolutions(%d, %d) succeeded", bad.res, bad.levels)
		}
	}
}

func TestConeStepSize(t *testing.T) {
	want := 32.0 * 50 / (64 * math.Tan(math.Pi/6))
	if got := ConeStepSize(DefaultWorldVolumeBoundary, DefaultVoxelResolution); math.Abs(float64(got)-want) > 1e-3 {
		t.Errorf("ConeStepSize = %v, want %v", got, want)
	}
	if got := VoxelSize(DefaultWorldVolumeBoundary, DefaultVoxelResolution); got != 100.0/128 {
		t.Errorf("VoxelSize = %v, want %v", got, 100.0/128)
	}
}

func TestPassChainLeavesResourcesReadable(t *testing.T) {
	f := newFixture(t)
	passes := f.chain(t)
	cmd := newCommandList(t, f.dev)

	for _, p := range passes {
		p.Execute(cmd, f.depth, f.frame)
	}

	for _, p := range passes {
		for _, out := range p.OutputBuffers() {
			if out.State() != gpu.StateGenericRead {
				t.Errorf("%s output %q ends in %s", p.Name(), out.Label(), out.State())
			}
			trs := cmd.Transitions(out)
			if len(trs) == 0 || len(trs)%2 != 0 {
				t.Errorf("%s output %q has %d transitions, want a non-empty even count", p.Name(), out.Label(), len(trs))
			}
		}
	}
	if f.depth.State() != gpu.StateGenericRead {
		t.Errorf("depth buffer ends in %s", f.depth.State())
	}
	if n := len(cmd.EventsOfKind(gputest.EventBeginRender)); n != 3 {
		t.Errorf("recorded %d render passes, want 3", n)
	}
}

func TestPassNamesAndOutputs(t *testing.T) {
	f := newFixture(t)
	passes := f.chain(t)
	want := []struct {
		name    string
		outputs int
		format  wgpu.TextureFormat
	}{
		{NameShadowMap, 1, wgpu.TextureFormatRGBA16Float},
		{NameGBuffer, 3, wgpu.TextureFormatRGBA16Float},
		{NameDeferredShading, 1, wgpu.TextureFormatRGBA16Float},
		{NameVoxelInjection, 5, wgpu.TextureFormatRGBA8Unorm},
		{NameSHIndirect, 3, wgpu.TextureFormatRGBA8Unorm},
		{NameIndirectLighting, 1, wgpu.TextureFormatRGBA16Float},
		{NameSkyBox, 1, wgpu.TextureFormatRGBA16Float},
		{NameVolumetricLighting, 1, wgpu.TextureFormatRGBA16Float},
		{NameFXAA, 1, wgpu.TextureFormatRGBA16Float},
		{NameToneMapping, 1, wgpu.TextureFormatRGBA8Unorm},
		{NameColorGrading, 1, wgpu.TextureFormatRGBA8Unorm},
	}
	for i, w := range want {
		p := passes[i]
		if p.Name() != w.name {
			t.Errorf("pass %d name = %q, want %q", i, p.Name(), w.name)
		}
		outs := p.OutputBuffers()
		if len(outs) != w.outputs {
			t.Errorf("%s has %d outputs, want %d", w.name, len(outs), w.outputs)
			continue
		}
		for _, out := range outs {
			if out.Desc().Format != w.format {
				t.Errorf("%s output %q is %s, want %s", w.name, out.Label(), out.Desc().Format, w.format)
			}
		}
	}
}

func TestShadowMapDepthLeavesCommonOnce(t *testing.T) {
	f := newFixture(t)
	p := NewShadowMapPass()
	Initialize(p, f.dev, f.cfg)

	if d := p.DepthBuffer().Desc(); d.Format != wgpu.TextureFormatDepth32Float || d.Width != 32 || d.Height != 32 {
		t.Fatalf("shadow depth = %+v", d)
	}
	if p.DepthBuffer().State() != gpu.StateCommon {
		t.Fatalf("shadow depth starts in %s", p.DepthBuffer().State())
	}

	cmd := newCommandList(t, f.dev)
	p.Execute(cmd, f.depth, f.frame)
	p.Execute(cmd, f.depth, f.frame)

	trs := cmd.Transitions(p.DepthBuffer())
	if len(trs) != 1 || trs[0].Before != gpu.StateCommon || trs[0].After != gpu.StateDepthWrite {
		t.Errorf("shadow depth transitions = %+v, want one Common -> DepthWrite", trs)
	}
	begins := cmd.EventsOfKind(gputest.EventBeginRender)
	if len(begins) != 2 || begins[0].Pass.Depth.ClearDepth != 1 || !begins[0].Pass.Colors[0].Clear {
		t.Errorf("render passes = %+v", begins)
	}
	if n := len(cmd.EventsOfKind(gputest.EventDrawIndexed)); n != 2*len(f.scene.Objects) {
		t.Errorf("recorded %d draws, want %d", n, 2*len(f.scene.Objects))
	}
}

func TestGBufferBindsObjectAndMaterialOffsets(t *testing.T) {
	f := newFixture(t)
	p := NewGBufferPass()
	Initialize(p, f.dev, f.cfg)

	cmd := newCommandList(t, f.dev)
	p.Execute(cmd, f.depth, f.frame)

	var frameBinds, tableBinds []gputest.Event
	for _, e := range cmd.EventsOfKind(gputest.EventSetBindGroup) {
		if e.Group == 0 {
			frameBinds = append(frameBinds, e)
		} else {
			tableBinds = append(tableBinds, e)
		}
	}
	if len(frameBinds) != len(f.scene.Objects) || len(tableBinds) != len(f.scene.Objects) {
		t.Fatalf("bound %d frame groups and %d tables for %d objects", len(frameBinds), len(tableBinds), len(f.scene.Objects))
	}
	for i, o := range f.scene.Objects {
		want := []uint32{f.frame.ObjectCB.Offset(o.ObjCBIndex), f.frame.MaterialCB.Offset(o.Material.MatCBIndex)}
		got := frameBinds[i].Offsets
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("object %d offsets = %v, want %v", i, got, want)
		}
	}
	if frameBinds[1].Offsets[0] == 0 {
		t.Error("second object bound at offset 0")
	}

	trs := cmd.Transitions(f.depth)
	if len(trs) != 2 || trs[0].After != gpu.StateDepthWrite || trs[1].After != gpu.StateGenericRead {
		t.Errorf("depth transitions = %+v", trs)
	}

	// Both objects share the normal map; each table binds its own diffuse map.
	groups := f.dev.ObjectsOfKind("bind group")
	var tables []*gputest.Object
	for _, g := range groups {
		if strings.HasPrefix(g.Label(), NameGBuffer+" Object") {
			tables = append(tables, g)
		}
	}
	if len(tables) != 2 {
		t.Fatalf("created %d object tables, want 2", len(tables))
	}
	if tables[0].Entries[0].Texture == tables[1].Entries[0].Texture {
		t.Error("objects share a diffuse map")
	}
	if tables[0].Entries[1].Texture != tables[1].Entries[1].Texture {
		t.Error("objects do not share the normal map")
	}
}

func TestVoxelInjectionDispatches(t *testing.T) {
	f := newFixture(t)
	lighting, err := f.dev.CreateTexture(gpu.TextureDesc{
		Label:        "lighting",
		Width:        testWidth,
		Height:       testHeight,
		Format:       wgpu.TextureFormatRGBA16Float,
		Usage:        wgpu.TextureUsageTextureBinding,
		InitialState: gpu.StateGenericRead,
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := f.cfg
	cfg.InputBuffers = []gpu.Texture{lighting}
	p := NewVoxelInjectionPass()
	Initialize(p, f.dev, cfg)

	for i, out := range p.OutputBuffers() {
		d := out.Desc()
		want := uint32(DefaultVoxelResolution >> i)
		if d.Dimension != gpu.TextureDimension3D || d.Width != want || d.Height != want || d.DepthOrLayers != want {
			t.Errorf("cascade %d = %+v, want %d^3", i, d, want)
		}
	}

	cmd := newCommandList(t, f.dev)
	p.Execute(cmd, f.depth, f.frame)
	ds := cmd.EventsOfKind(gputest.EventDispatch)
	if len(ds) != 2 {
		t.Fatalf("recorded %d dispatches, want 2", len(ds))
	}
	if ds[0].Counts != [3]uint32{32, 32, 32} {
		t.Errorf("clear dispatch = %v, want 32^3", ds[0].Counts)
	}
	if ds[1].Counts != [3]uint32{4, 3, 1} {
		t.Errorf("injection dispatch = %v, want [4 3 1]", ds[1].Counts)
	}
	for _, e := range cmd.EventsOfKind(gputest.EventSetBindGroup) {
		if e.Group == 0 && len(e.Offsets) != 2 {
			t.Errorf("frame group bound with %d offsets", len(e.Offsets))
		}
	}
}

func TestVoxelInjectionRejectsCascadeCount(t *testing.T) {
	f := newFixture(t)
	cfg := f.cfg
	cfg.CascadeCount = 4
	cfg.InputBuffers = []gpu.Texture{f.depth}
	defer func() {
		if recover() == nil {
			t.Error("Initialize did not panic")
		}
	}()
	Initialize(NewVoxelInjectionPass(), f.dev, cfg)
}

func TestSHIndirectDispatchesOverGrid(t *testing.T) {
	f := newFixture(t)
	passes := f.chain(t)
	sh := passes[4]
	cmd := newCommandList(t, f.dev)
	sh.Execute(cmd, f.depth, f.frame)

	ds := cmd.EventsOfKind(gputest.EventDispatch)
	if len(ds) != 1 || ds[0].Counts != [3]uint32{2, 2, 2} {
		t.Errorf("dispatches = %+v, want one of [2 2 2]", ds)
	}
	for _, out := range sh.OutputBuffers() {
		if d := out.Desc(); d.Width != DefaultSHGridResolution || d.Dimension != gpu.TextureDimension3D {
			t.Errorf("SH grid %q = %+v", out.Label(), d)
		}
	}
}

func TestColorGradingBindsSceneLUT(t *testing.T) {
	f := newFixture(t)
	_ = f.chain(t)

	var found bool
	for _, g := range f.dev.ObjectsOfKind("bind group") {
		if g.Label() != NameColorGrading {
			continue
		}
		for _, e := range g.Entries {
			if e.Texture == f.scene.ColorLUT {
				found = true
			}
		}
	}
	if !found {
		t.Error("color grading table does not bind the scene LUT")
	}
}

func TestMissingInputPanics(t *testing.T) {
	f := newFixture(t)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Initialize did not panic")
		}
		if !strings.Contains(r.(string), NameFXAA) {
			t.Errorf("panic %q does not name the pass", r)
		}
	}()
	Initialize(NewFXAAPass(), f.dev, f.cfg)
}

func TestCreationFailurePanics(t *testing.T) {
	f := newFixture(t)
	f.dev.FailOn = NameToneMapping
	cfg := f.cfg
	cfg.InputBuffers = []gpu.Texture{f.scene.ColorLUT}
	defer func() {
		if recover() == nil {
			t.Error("Initialize did not panic")
		}
	}()
	Initialize(NewToneMappingPass(), f.dev, cfg)
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	passes := f.chain(t)
	var outputs []*gputest.Texture
	for _, p := range passes {
		for _, out := range p.OutputBuffers() {
			outputs = append(outputs, out.(*gputest.Texture))
		}
	}
	shadowDepth := passes[0].(*ShadowMapPass).DepthBuffer().(*gputest.Texture)

	for _, p := range passes {
		p.Release()
		p.Release()
	}
	for _, out := range outputs {
		if out.Released != 1 {
			t.Errorf("output %q released %d times", out.Label(), out.Released)
		}
	}
	if shadowDepth.Released != 1 {
		t.Errorf("shadow depth released %d times", shadowDepth.Released)
	}
	if f.depth.(*gputest.Texture).Released != 0 {
		t.Error("a pass released the shared depth buffer")
	}
	for _, p := range f.dev.ObjectsOfKind("compute pipeline") {
		if p.Released != 1 {
			t.Errorf("compute pipeline %q released %d times", p.Label(), p.Released)
		}
	}
}

func TestShaderOverride(t *testing.T) {
	f := newFixture(t)
	cfg := f.cfg
	cfg.InputBuffers = []gpu.Texture{f.scene.ColorLUT}
	cfg.ComputeShaderName = "fxaa"
	p := NewToneMappingPass()

	defer func() {
		// fxaa reads "input", which the tone mapping table never registers.
		if recover() == nil {
			t.Error("Initialize with a mismatched shader did not panic")
		}
	}()
	Initialize(p, f.dev, cfg)
}

package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/camera"
	"github.com/Carmen-Shannon/oxy-gi/engine/loader"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxy-gi/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func newController() camera.OrbitController {
	return camera.NewOrbitController(
		camera.WithRadius(10),
		camera.WithAngles(0, 0),
		camera.WithSpeeds(0.1, 0.01, 1, 0.5),
	)
}

func TestApplyCameraInputKeys(t *testing.T) {
	tests := []struct {
		name   string
		keys   []uint32
		dAz    float32
		dEl    float32
		target [3]float32
	}{
		{name: "no input"},
		{name: "orbit right", keys: []uint32{common.KeyD}, dAz: 0.1},
		{name: "orbit left", keys: []uint32{common.KeyA}, dAz: -0.1},
		{name: "orbit up", keys: []uint32{common.KeyW}, dEl: 0.1},
		{name: "opposite keys cancel", keys: []uint32{common.KeyW, common.KeyS}},
		{name: "pan up", keys: []uint32{common.KeyE}, target: [3]float32{0, 0.5, 0}},
		{name: "pan down", keys: []uint32{common.KeyQ}, target: [3]float32{0, -0.5, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := window.NewInput()
			for _, k := range tt.keys {
				in.KeyDown(k)
			}
			c := newController()
			az, el := c.Azimuth(), c.Elevation()

			applyCameraInput(in, c, 1.0/referenceTickRate)

			if !near(c.Azimuth()-az, tt.dAz) {
				t.Errorf("azimuth moved %v, want %v", c.Azimuth()-az, tt.dAz)
			}
			if !near(c.Elevation()-el, tt.dEl) {
				t.Errorf("elevation moved %v, want %v", c.Elevation()-el, tt.dEl)
			}
			got := c.Target()
			for i := range got {
				if !near(got[i], tt.target[i]) {
					t.Errorf("target = %v, want %v", got, tt.target)
					break
				}
			}
		})
	}
}

func TestApplyCameraInputScalesWithDeltaTime(t *testing.T) {
	in := window.NewInput()
	in.KeyDown(common.KeyD)

	c := newController()
	applyCameraInput(in, c, 2.0/referenceTickRate)
	if !near(c.Azimuth(), 0.2) {
		t.Errorf("azimuth = %v after two reference frames, want 0.2", c.Azimuth())
	}
}

func TestApplyCameraInputScrollZooms(t *testing.T) {
	in := window.NewInput()
	in.Scroll(3)

	c := newController()
	applyCameraInput(in, c, 0)
	if !near(c.Radius(), 7) {
		t.Errorf("radius = %v, want 7", c.Radius())
	}

	applyCameraInput(in, c, 0)
	if !near(c.Radius(), 7) {
		t.Errorf("scroll applied twice: radius = %v", c.Radius())
	}
}

func TestApplyCameraInputLeftDragOrbits(t *testing.T) {
	in := window.NewInput()
	in.MouseButton(window.MouseButtonLeft, true, 100, 100)
	in.MouseMove(110, 100)

	c := newController()
	applyCameraInput(in, c, 0)
	if c.Azimuth() == 0 {
		t.Error("left drag did not orbit")
	}
	if c.Target() != [3]float32{} {
		t.Errorf("left drag moved the target to %v", c.Target())
	}
}

func TestFrameDuration(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{fps: 0, want: 0},
		{fps: -5, want: 0},
		{fps: 50, want: 20 * time.Millisecond},
		{fps: 1, want: time.Second},
	}
	for _, tt := range tests {
		if got := frameDuration(tt.fps); got != tt.want {
			t.Errorf("frameDuration(%v) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestSendLatestKeepsNewestValue(t *testing.T) {
	ch := make(chan int, 1)
	sendLatest(ch, 1)
	sendLatest(ch, 2)
	sendLatest(ch, 3)
	if got := <-ch; got != 3 {
		t.Errorf("received %d, want 3", got)
	}
	select {
	case v := <-ch:
		t.Errorf("unexpected extra value %d", v)
	default:
	}
}

func TestEngineOptions(t *testing.T) {
	e := NewEngine(
		WithTickRate(30),
		WithRenderFrameLimit(120),
		WithProfiling(true),
		WithScenePath("scenes/sponza.txt"),
		WithVSync(true),
	).(*engine)

	if e.engineTickRate != time.Second/30 {
		t.Errorf("tick rate = %v", e.engineTickRate)
	}
	if e.renderFrameLimit != frameDuration(120) {
		t.Errorf("frame limit = %v", e.renderFrameLimit)
	}
	if !e.profilingEnabled || !e.vsync {
		t.Error("profiling and vsync should be enabled")
	}
	if e.scenePath != "scenes/sponza.txt" {
		t.Errorf("scene path = %q", e.scenePath)
	}
	if e.Renderer() == nil {
		t.Error("renderer not created")
	}
	if e.Camera() != nil || e.Scene() != nil {
		t.Error("camera and scene should be nil before Run")
	}

	e.LoadScene("scenes/other.txt")
	if e.scenePath != "scenes/other.txt" {
		t.Errorf("LoadScene before Run should set the path, got %q", e.scenePath)
	}
}

func TestRunWithoutScene(t *testing.T) {
	e := NewEngine()
	if err := e.Run(); err != ErrNoScene {
		t.Errorf("Run() = %v, want ErrNoScene", err)
	}
}

const (
	testWidth  = 64
	testHeight = 48
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string, c byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range 4 {
		img.Set(i%2, i/2, color.RGBA{R: c, G: c, B: c, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// writeScene writes a scene of objects triangles plus the assets it references under root and
// returns the scene file path.
func writeScene(t *testing.T, root, name string, objects int) string {
	t.Helper()
	writeFile(t, filepath.Join(root, "Meshes", "tri.txt"),
		"3 3\n0 0 0 0 0 -1 1 0 0 0 0\n0 1 0 0 0 -1 1 0 0 0 1\n1 0 0 0 0 -1 1 0 0 1 0\n0 1 2\n")
	writePNG(t, filepath.Join(root, "Textures", "a.png"), 50)
	writePNG(t, filepath.Join(root, "Textures", "n.png"), 128)
	for _, face := range loader.CubeFaces {
		writePNG(t, filepath.Join(root, "Textures", "SkyBox", face+".png"), 200)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n0 0 -5\n0 0 0 1\n0 -1 0\n1 1 1\n%d\n", name, objects)
	for i := range objects {
		fmt.Fprintf(&b, "tri a n\n%d 0 0\n0 0 0 1\n1 1 1\n", i)
	}
	path := filepath.Join(root, name+".txt")
	writeFile(t, path, b.String())
	return path
}

// newTestEngine returns an engine rendering to a recording device, without a window.
func newTestEngine(t *testing.T, root string) (*engine, *gputest.Device, *gputest.SwapChain) {
	t.Helper()
	e := NewEngine(WithAssetRoot(root)).(*engine)
	dev := gputest.NewDevice()
	sc := gputest.NewSwapChain(testWidth, testHeight, wgpu.TextureFormatBGRA8Unorm)
	e.device, e.swapChain = dev, sc
	t.Cleanup(e.shutdown)
	return e, dev, sc
}

func shadowMapPasses(cmd *gputest.CommandList) int {
	n := 0
	for _, ev := range cmd.EventsOfKind(gputest.EventBeginRender) {
		if ev.Label == pass.NameShadowMap {
			n++
		}
	}
	return n
}

func TestDrawRendersShadowsAfterFailedAcquire(t *testing.T) {
	root := t.TempDir()
	e, dev, sc := newTestEngine(t, root)
	if err := e.loadScene(writeScene(t, root, "one", 1), testWidth, testHeight); err != nil {
		t.Fatalf("loadScene: %v", err)
	}

	sc.AcquireErr = errors.New("surface lost")
	if err := e.draw(e.ring.Acquire()); err == nil {
		t.Fatal("draw succeeded without a back buffer")
	}
	if len(dev.Submitted) != 0 {
		t.Fatalf("%d command lists submitted without a back buffer", len(dev.Submitted))
	}

	sc.AcquireErr = nil
	for range 2 {
		if err := e.draw(e.ring.Acquire()); err != nil {
			t.Fatalf("draw: %v", err)
		}
	}
	if len(dev.Submitted) != 2 {
		t.Fatalf("%d command lists submitted, want 2", len(dev.Submitted))
	}
	if got := shadowMapPasses(dev.Submitted[0]); got != 1 {
		t.Errorf("shadow map passes in the first submitted frame = %d, want 1", got)
	}
	if got := shadowMapPasses(dev.Submitted[1]); got != 0 {
		t.Errorf("shadow map passes in the second submitted frame = %d, want 0", got)
	}
	if sc.Presents != 2 {
		t.Errorf("presented %d times, want 2", sc.Presents)
	}
}

func TestFailedSceneLoadKeepsCurrentScene(t *testing.T) {
	root := t.TempDir()
	e, _, _ := newTestEngine(t, root)
	small := writeScene(t, root, "small", 1)
	big := writeScene(t, root, "big", 3)

	if err := e.loadScene(small, testWidth, testHeight); err != nil {
		t.Fatalf("loadScene: %v", err)
	}
	first, ring, cam := e.Scene(), e.ring, e.Camera()
	sky := first.SkyBox.(*gputest.Texture)

	// A minimized window reports a zero size.
	if err := e.loadScene(big, 0, 0); err == nil {
		t.Fatal("scene loaded into a 0x0 render target")
	}
	if e.Scene() != first || e.ring != ring || e.Camera() != cam {
		t.Fatal("failed load replaced the scene, ring or camera")
	}
	if sky.Released != 0 {
		t.Fatalf("current scene's sky box released %d times", sky.Released)
	}

	frame := e.ring.Acquire()
	e.renderer.UpdateObjectCBs(e.Scene(), frame)
	e.renderer.UpdateMaterialCBs(e.Scene(), frame)
	if err := e.draw(frame); err != nil {
		t.Fatalf("draw after failed load: %v", err)
	}

	if err := e.loadScene(big, testWidth, testHeight); err != nil {
		t.Fatalf("loadScene: %v", err)
	}
	if got := len(e.Scene().Objects); got != 3 {
		t.Fatalf("scene has %d objects, want 3", got)
	}
	if sky.Released != 1 {
		t.Errorf("previous sky box released %d times, want 1", sky.Released)
	}
	frame = e.ring.Acquire()
	e.renderer.UpdateObjectCBs(e.Scene(), frame)
}

func TestFailedSceneFileKeepsCurrentScene(t *testing.T) {
	root := t.TempDir()
	e, _, _ := newTestEngine(t, root)
	if err := e.loadScene(writeScene(t, root, "one", 1), testWidth, testHeight); err != nil {
		t.Fatalf("loadScene: %v", err)
	}
	first := e.Scene()
	if err := e.loadScene(filepath.Join(root, "missing.txt"), testWidth, testHeight); err == nil {
		t.Fatal("missing scene loaded")
	}
	if e.Scene() != first {
		t.Error("failed load replaced the scene")
	}
}

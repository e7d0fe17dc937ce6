package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/camera"
	"github.com/Carmen-Shannon/oxy-gi/engine/light"
	"github.com/Carmen-Shannon/oxy-gi/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/scene"
	"github.com/Carmen-Shannon/oxy-gi/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultDepthFormat is the depth-stencil format of the scene depth buffer.
const DefaultDepthFormat = wgpu.TextureFormatDepth24PlusStencil8

// ErrNoScene is returned by Run when no scene path was configured.
var ErrNoScene = errors.New("engine: no scene to load")

// engine implements the Engine interface.
// The window thread pumps messages, the engine thread ticks game logic, and the render thread
// owns the device, the renderer and the frame ring.
type engine struct {
	mu *sync.Mutex // guards camera and sun, replaced on scene load

	tickRateChannel chan time.Duration
	resizeChannel   chan [2]int
	sceneChannel    chan string

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window
	input  *window.Input

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // 0 = uncapped

	scenePath       string
	assetRoot       string
	vsync           bool
	rendererOptions []renderer.RendererBuilderOption
	cameraOptions   []camera.CameraBuilderOption

	device    gpu.Device
	swapChain gpu.SwapChain
	scenes    scene.SceneManager
	renderer  renderer.Renderer
	ring      *frame_resource.Ring
	camera    camera.Camera
	sun       light.Sun
	timer     *common.GameTimer
}

// Engine is the main entry point for the engine. It owns the window, loads the scene, and
// drives the tick loop and the render loop.
type Engine interface {
	// Window returns the underlying window.
	Window() window.Window

	// Input returns the tracker fed by the window's input callbacks.
	Input() *window.Input

	// Renderer returns the renderer. It is initialized once Run has loaded the scene.
	Renderer() renderer.Renderer

	// Camera returns the camera, or nil before the scene is loaded.
	Camera() camera.Camera

	// Sun returns the scene's directional light, or nil before the scene is loaded.
	Sun() light.Sun

	// Scene returns the current scene, or nil before the first load.
	Scene() *scene.Scene

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called on the render thread after each frame was
	// presented.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// LoadScene replaces the current scene. While running, the load happens on the render
	// thread between frames; failures are logged and leave the current scene in place.
	//
	// Parameters:
	//   - path: the scene file path
	LoadScene(path string)

	// Run creates the device, loads the scene and blocks in the window message loop until the
	// window closes or Quit is called.
	//
	// Returns:
	//   - error: error if the window, the scene or the renderer could not be set up
	Run() error

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		resizeChannel:   make(chan [2]int, 1),
		sceneChannel:    make(chan string, 1),
		quitChannel:     make(chan struct{}),
		input:           window.NewInput(),
		profiler:        profiler.NewProfiler(profiler.WithPassTimings(true)),
		engineTickRate:  time.Second / 60,
		assetRoot:       "Assets",
		timer:           common.NewGameTimer(),
	}

	for _, opt := range options {
		opt(e)
	}

	e.scenes = scene.NewSceneManager(scene.WithAssetRoot(e.assetRoot))
	e.renderer = renderer.NewRenderer(append([]renderer.RendererBuilderOption{
		renderer.WithProfiler(e.profiler),
	}, e.rendererOptions...)...)

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Input() *window.Input {
	return e.input
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camera
}

func (e *engine) Sun() light.Sun {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sun
}

func (e *engine) Scene() *scene.Scene {
	return e.scenes.Scene()
}

func (e *engine) Run() error {
	if e.scenePath == "" {
		return ErrNoScene
	}
	if e.window == nil {
		e.window = window.NewWindow()
	}
	e.input.Attach(e.window)
	e.window.SetResizeCallback(func(width, height int) {
		sendLatest(e.resizeChannel, [2]int{width, height})
	})
	// GLFW windows may only be destroyed on the thread pumping their messages.
	windowClosed := false
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			if !windowClosed {
				windowClosed = true
				_ = e.window.Close()
			}
		default:
		}
	})

	e.device, e.swapChain = gpu.NewWGPUDevice(gpu.WGPUDeviceOptions{
		SurfaceDescriptor: e.window.SurfaceDescriptor(),
		Width:             e.window.Width(),
		Height:            e.window.Height(),
		VSync:             e.vsync,
	})
	if err := e.loadScene(e.scenePath, e.window.Width(), e.window.Height()); err != nil {
		e.shutdown()
		_ = e.window.Close()
		return err
	}

	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	e.shutdown()
	if !windowClosed {
		_ = e.window.Close()
	}
	return nil
}

func (e *engine) LoadScene(path string) {
	if !e.running {
		e.scenePath = path
		return
	}
	sendLatest(e.sceneChannel, path)
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// sendLatest replaces any pending value in ch with v.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// loadScene loads path and rebuilds everything sized by the scene: the renderer's passes, the
// frame ring, the camera and the sun. The current scene, renderer and ring are replaced only
// once the new ones are built; on failure they are left as they were.
func (e *engine) loadScene(path string, width, height int) error {
	s, err := e.scenes.PrepareScene(path, e.device)
	if err != nil {
		return fmt.Errorf("load scene %q: %w", path, err)
	}
	if e.ring != nil {
		e.ring.Flush()
	}
	prev := e.scenes.Scene()
	if err := e.renderer.Initialize(e.device, width, height, e.swapChain.Format(), DefaultDepthFormat, s); err != nil {
		s.Release()
		return fmt.Errorf("load scene %q: %w", path, err)
	}
	ring, err := e.renderer.NewFrameRing()
	if err != nil {
		if prev != nil {
			if rerr := e.renderer.Initialize(e.device, width, height, e.swapChain.Format(), DefaultDepthFormat, prev); rerr != nil {
				log.Printf("[Engine] restoring scene %q: %v", prev.Name, rerr)
			}
		}
		s.Release()
		return fmt.Errorf("load scene %q: frame ring: %w", path, err)
	}
	e.scenes.SetScene(s)
	if e.ring != nil {
		e.ring.Release()
	}
	e.ring = ring

	cam := camera.NewCamera(append([]camera.CameraBuilderOption{
		camera.WithAspect(float32(width) / float32(height)),
		camera.WithController(camera.NewOrbitController(camera.WithLookFrom(s.CameraPosition))),
	}, e.cameraOptions...)...)
	sun := light.NewSun(
		light.WithDirection(s.LightDirection),
		light.WithStrength(s.LightStrength),
	)
	e.mu.Lock()
	e.camera, e.sun = cam, sun
	e.mu.Unlock()
	e.timer.Reset()
	return nil
}

// shutdown waits for the GPU and releases everything Run created.
func (e *engine) shutdown() {
	if e.ring != nil {
		e.ring.Release()
		e.ring = nil
	}
	e.renderer.Release()
	e.scenes.Release()
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
}

// handle launches the engine and render goroutines.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop. Pending resizes and scene loads are applied between
// frames. Recovers from panics and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		case size := <-e.resizeChannel:
			e.resize(size[0], size[1])
		case path := <-e.sceneChannel:
			if err := e.loadScene(path, e.window.Width(), e.window.Height()); err != nil {
				log.Printf("[Engine] %v", err)
			}
		default:
			start := time.Now()
			e.timer.Tick()
			dt := e.timer.DeltaTime()

			frame := e.ring.Acquire()
			e.update(dt, frame)
			if err := e.draw(frame); err != nil {
				log.Printf("[Engine] %v", err)
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}
			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// resize waits for in-flight frames, then resizes the swap chain and every size-dependent pass.
func (e *engine) resize(width, height int) {
	e.ring.Flush()
	e.swapChain.Resize(width, height)
	if err := e.renderer.Resize(width, height); err != nil {
		log.Printf("[Engine] resize to %dx%d: %v", width, height, err)
		return
	}
	e.camera.SetAspect(float32(width) / float32(height))
}

// update applies input to the camera and uploads the constants of frame.
func (e *engine) update(dt float32, frame *frame_resource.FrameResource) {
	applyCameraInput(e.input, e.camera.Controller(), dt)
	e.camera.Update()

	s := e.scenes.Scene()
	e.renderer.UpdateObjectCBs(s, frame)
	e.renderer.UpdateMaterialCBs(s, frame)
	e.renderer.UpdateMainPassCB(e.camera, e.sun, e.timer, frame)
}

// draw records every pass into the frame's command list, copies the result to the back buffer,
// submits, presents and signals the frame's fence.
func (e *engine) draw(frame *frame_resource.FrameResource) error {
	defer e.ring.Signal(frame)

	cmd, err := e.device.CreateCommandList(frame.CommandListLabel)
	if err != nil {
		return fmt.Errorf("create command list: %w", err)
	}
	defer cmd.Release()

	backBuffer, err := e.swapChain.AcquireBackBuffer()
	if err != nil {
		return fmt.Errorf("acquire back buffer: %w", err)
	}

	submitted := e.renderer.Execute(cmd, frame)
	e.renderer.CopyToBackBuffer(cmd, backBuffer)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("close command list: %w", err)
	}
	e.device.Submit(cmd)
	submitted()
	e.swapChain.Present()
	return nil
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect on the next tick.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running {
		sendLatest(e.tickRateChannel, newRate)
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

// frameDuration returns the duration of one frame at fps, or 0 when fps <= 0.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

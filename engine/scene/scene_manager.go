package scene

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gi/engine/loader"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
)

// sceneManager is the implementation of the SceneManager interface.
type sceneManager struct {
	mu sync.RWMutex

	loader     loader.Loader
	ownsLoader bool
	assetRoot  string

	current *Scene
}

// SceneManager owns the current scene. Loading a new scene replaces the current one only after
// the new one is fully built; a failed load leaves the current scene untouched.
type SceneManager interface {
	// LoadScene parses a scene file, decodes the meshes and textures it references, uploads
	// them, and makes the result the current scene. The previous scene is released.
	//
	// Parameters:
	//   - path: the scene file path
	//   - device: the device to upload to
	//
	// Returns:
	//   - error: error if the file or an asset is missing or malformed, or an upload fails
	LoadScene(path string, device gpu.Device) error

	// PrepareScene loads and uploads a scene like LoadScene but leaves the current scene in
	// place. The caller owns the result until it passes it to SetScene.
	//
	// Parameters:
	//   - path: the scene file path
	//   - device: the device to upload to
	//
	// Returns:
	//   - *Scene: the built scene
	//   - error: error if the file or an asset is missing or malformed, or an upload fails
	PrepareScene(path string, device gpu.Device) (*Scene, error)

	// SetScene makes s the current scene and releases the previous one.
	//
	// Parameters:
	//   - s: a scene returned by PrepareScene
	SetScene(s *Scene)

	// Scene returns the current scene, or nil before the first successful load.
	//
	// Returns:
	//   - *Scene: the current scene
	Scene() *Scene

	// Loader returns the loader scenes are read with.
	//
	// Returns:
	//   - loader.Loader: the loader
	Loader() loader.Loader

	// Release releases the current scene and, if the manager created it, the loader.
	Release()
}

var _ SceneManager = &sceneManager{}

// NewSceneManager creates a new SceneManager with the given options. Without WithLoader the
// manager creates its own loader rooted at WithAssetRoot, or at Assets by default.
//
// Parameters:
//   - options: functional options configuring the manager
//
// Returns:
//   - SceneManager: the manager
func NewSceneManager(options ...SceneManagerBuilderOption) SceneManager {
	m := &sceneManager{assetRoot: "Assets"}
	for _, option := range options {
		option(m)
	}
	if m.loader == nil {
		m.loader = loader.NewLoader(loader.WithAssetRoot(m.assetRoot))
		m.ownsLoader = true
	}
	return m
}

func (m *sceneManager) LoadScene(path string, device gpu.Device) error {
	s, err := m.PrepareScene(path, device)
	if err != nil {
		return err
	}
	m.SetScene(s)
	return nil
}

func (m *sceneManager) PrepareScene(path string, device gpu.Device) (*Scene, error) {
	start := time.Now()

	desc, err := m.loader.LoadSceneFile(path)
	if err != nil {
		return nil, err
	}
	assets, err := m.loader.LoadSceneAssets(desc)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", desc.Name, err)
	}
	s, err := BuildScene(device, assets)
	if err != nil {
		return nil, err
	}

	log.Printf("[SceneManager] loaded %q: %d objects, %d meshes, %d textures in %v",
		s.Name, len(s.Objects), len(assets.Meshes), len(assets.Textures), time.Since(start).Round(time.Millisecond))
	return s, nil
}

func (m *sceneManager) SetScene(s *Scene) {
	m.mu.Lock()
	prev := m.current
	m.current = s
	m.mu.Unlock()
	if prev != nil && prev != s {
		prev.Release()
	}
}

func (m *sceneManager) Scene() *Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *sceneManager) Loader() loader.Loader {
	return m.loader
}

func (m *sceneManager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Release()
		m.current = nil
	}
	if m.ownsLoader && m.loader != nil {
		m.loader.Release()
		m.ownsLoader = false
	}
}

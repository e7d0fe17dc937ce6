package loader

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gi/common"
)

// MeshExtensions lists the mesh extensions tried, in order, when a mesh name has none.
var MeshExtensions = []string{".txt", ".mesh", ".glb", ".gltf"}

// SceneAssets is everything a scene description references, decoded and ready for upload.
type SceneAssets struct {
	Desc *SceneDesc

	// Meshes are keyed by the mesh name used in the description.
	Meshes map[string]*common.MeshData

	// Textures are keyed by the texture name used in the description.
	Textures map[string]common.TextureStagingData

	// SkyBox holds the six cube map faces in CubeFaces order.
	SkyBox [6]common.TextureStagingData

	// ColorLUT is the 256x16 color grading table, or nil when the asset root has none.
	ColorLUT *common.TextureStagingData
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	meshDir    string
	textureDir string
	skyBox     string
	colorLUT   string
	workers    int

	backends map[string]meshBackend

	meshCache    map[string]*common.MeshData
	textureCache map[string]common.TextureStagingData

	pool     worker.DynamicWorkerPool
	poolOnce sync.Once
}

// Loader reads scene descriptions, meshes and textures from an asset root and caches decoded
// results by absolute path. Mesh formats are selected by extension: .txt and .mesh use the
// text mesh format, .gltf and .glb the glTF backend.
type Loader interface {
	// LoadSceneFile parses a scene description file.
	//
	// Parameters:
	//   - path: the scene file path
	//
	// Returns:
	//   - *SceneDesc: the parsed description
	//   - error: error if the file is missing or malformed
	LoadSceneFile(path string) (*SceneDesc, error)

	// LoadMesh loads a mesh by name from the mesh directory. A name without an extension is
	// tried with each of MeshExtensions.
	//
	// Parameters:
	//   - name: the mesh name or file name
	//
	// Returns:
	//   - *common.MeshData: the mesh, shared with the cache
	//   - error: error if the mesh is missing or malformed
	LoadMesh(name string) (*common.MeshData, error)

	// LoadTexture loads a texture by name from the texture directory. A name without an
	// extension is tried with each of TextureExtensions.
	//
	// Parameters:
	//   - name: the texture name or file name
	//
	// Returns:
	//   - common.TextureStagingData: the RGBA8 pixels, shared with the cache
	//   - error: error if the texture is missing or cannot be decoded
	LoadTexture(name string) (common.TextureStagingData, error)

	// LoadCubeMap loads the six faces of a cube map from the texture directory, either as
	// name/px.png ... name/nz.png or name_px.png ... name_nz.png. Faces must be square; faces
	// smaller or larger than the first are resized to match it.
	//
	// Parameters:
	//   - name: the cube map name
	//
	// Returns:
	//   - [6]common.TextureStagingData: the faces in CubeFaces order
	//   - error: error if a face is missing or not square
	LoadCubeMap(name string) ([6]common.TextureStagingData, error)

	// LoadSceneAssets decodes every mesh and texture a description references, plus the sky
	// box and the optional color grading table, in parallel. The first error wins and no
	// partial result is returned.
	//
	// Parameters:
	//   - desc: the scene description
	//
	// Returns:
	//   - *SceneAssets: the decoded assets
	//   - error: the first load error
	LoadSceneAssets(desc *SceneDesc) (*SceneAssets, error)

	// Release stops the loader's worker pool. Cached data stays readable.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the given options. Assets are read from Assets/Meshes
// and Assets/Textures unless overridden.
//
// Parameters:
//   - options: functional options configuring the loader
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		meshDir:    filepath.Join("Assets", "Meshes"),
		textureDir: filepath.Join("Assets", "Textures"),
		skyBox:     "SkyBox",
		colorLUT:   "ColorGradingLUT",
		workers:    4,
		backends: map[string]meshBackend{
			".txt":  textMeshBackend{},
			".mesh": textMeshBackend{},
			".gltf": gltfMeshBackend{},
			".glb":  gltfMeshBackend{},
		},
		meshCache:    make(map[string]*common.MeshData),
		textureCache: make(map[string]common.TextureStagingData),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadSceneFile(path string) (*SceneDesc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", path, err)
	}
	defer f.Close()

	desc, err := ParseScene(f)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", path, err)
	}
	return desc, nil
}

func (l *loader) LoadMesh(name string) (*common.MeshData, error) {
	path, err := resolveAsset(l.meshDir, name, MeshExtensions)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}
	key := cacheKey(path)

	l.mu.RLock()
	if cached, ok := l.meshCache[key]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, ok := l.backends[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("mesh %q: unsupported format %s", name, filepath.Ext(path))
	}
	m, err := backend.Load(name, path)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.meshCache[key] = m
	l.mu.Unlock()
	return m, nil
}

func (l *loader) LoadTexture(name string) (common.TextureStagingData, error) {
	path, err := resolveAsset(l.textureDir, name, TextureExtensions)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("texture %q: %w", name, err)
	}
	return l.loadTexturePath(path)
}

func (l *loader) LoadCubeMap(name string) ([6]common.TextureStagingData, error) {
	var faces [6]common.TextureStagingData
	for i, face := range CubeFaces {
		path, err := resolveCubeFace(l.textureDir, name, face)
		if err != nil {
			return faces, fmt.Errorf("cube map %q face %s: %w", name, face, err)
		}
		if faces[i], err = l.loadTexturePath(path); err != nil {
			return faces, err
		}
	}
	return assembleCubeMap(name, faces)
}

func (l *loader) LoadSceneAssets(desc *SceneDesc) (*SceneAssets, error) {
	assets := &SceneAssets{
		Desc:     desc,
		Meshes:   make(map[string]*common.MeshData),
		Textures: make(map[string]common.TextureStagingData),
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		taskID   int
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	submit := func(do func() error) {
		wg.Add(1)
		l.workerPool().SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				if err := do(); err != nil {
					fail(err)
					return nil, err
				}
				return nil, nil
			},
		})
		taskID++
	}

	start := time.Now()
	for _, name := range desc.MeshNames() {
		submit(func() error {
			m, err := l.LoadMesh(name)
			if err == nil {
				mu.Lock()
				assets.Meshes[name] = m
				mu.Unlock()
			}
			return err
		})
	}
	for _, name := range desc.TextureNames() {
		submit(func() error {
			tex, err := l.LoadTexture(name)
			if err == nil {
				mu.Lock()
				assets.Textures[name] = tex
				mu.Unlock()
			}
			return err
		})
	}
	submit(func() error {
		faces, err := l.LoadCubeMap(l.skyBox)
		assets.SkyBox = faces
		return err
	})
	submit(func() error {
		lut, err := l.LoadTexture(l.colorLUT)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil
		case err != nil:
			return err
		}
		assets.ColorLUT = &lut
		return nil
	})
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("scene %q: %w", desc.Name, firstErr)
	}
	log.Printf("[Loader] %s: %d meshes, %d textures in %s", desc.Name, len(assets.Meshes), len(assets.Textures), time.Since(start).Round(time.Millisecond))
	return assets, nil
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool != nil {
		l.pool.Stop()
	}
}

// workerPool creates the decode pool on first use.
func (l *loader) workerPool() worker.DynamicWorkerPool {
	l.poolOnce.Do(func() {
		l.mu.Lock()
		l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
		l.mu.Unlock()
	})
	return l.pool
}

func (l *loader) loadTexturePath(path string) (common.TextureStagingData, error) {
	key := cacheKey(path)
	l.mu.RLock()
	if cached, ok := l.textureCache[key]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	tex, err := decodeTextureFile(path)
	if err != nil {
		return common.TextureStagingData{}, err
	}

	l.mu.Lock()
	l.textureCache[key] = tex
	l.mu.Unlock()
	return tex, nil
}

// cacheKey returns the absolute form of path, or path itself when it cannot be made absolute.
func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

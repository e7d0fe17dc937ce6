package loader

import "path/filepath"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithAssetRoot reads meshes from root/Meshes and textures from root/Textures.
//
// Parameters:
//   - root: the asset root directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset root to a loader
func WithAssetRoot(root string) LoaderBuilderOption {
	return func(l *loader) {
		l.meshDir = filepath.Join(root, "Meshes")
		l.textureDir = filepath.Join(root, "Textures")
	}
}

// WithMeshDir sets the directory mesh names are resolved against.
//
// Parameters:
//   - dir: the mesh directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the mesh directory to a loader
func WithMeshDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.meshDir = dir
	}
}

// WithTextureDir sets the directory texture and cube map names are resolved against.
//
// Parameters:
//   - dir: the texture directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture directory to a loader
func WithTextureDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.textureDir = dir
	}
}

// WithSkyBox sets the cube map name loaded as the scene's sky box. Defaults to "SkyBox".
//
// Parameters:
//   - name: the cube map name
//
// Returns:
//   - LoaderBuilderOption: a function that applies the sky box name to a loader
func WithSkyBox(name string) LoaderBuilderOption {
	return func(l *loader) {
		l.skyBox = name
	}
}

// WithColorLUT sets the texture name loaded as the color grading table. Defaults to
// "ColorGradingLUT"; a missing table is not an error.
//
// Parameters:
//   - name: the texture name
//
// Returns:
//   - LoaderBuilderOption: a function that applies the table name to a loader
func WithColorLUT(name string) LoaderBuilderOption {
	return func(l *loader) {
		l.colorLUT = name
	}
}

// WithWorkers sets the number of decode workers used by LoadSceneAssets. Defaults to 4.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

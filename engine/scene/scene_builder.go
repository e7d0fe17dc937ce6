package scene

import "github.com/Carmen-Shannon/oxy-gi/engine/loader"

// SceneManagerBuilderOption is a functional option for configuring a SceneManager.
// Use the With* functions to create options.
type SceneManagerBuilderOption func(m *sceneManager)

// WithLoader sets the loader scenes are read with. The manager does not release it.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - SceneManagerBuilderOption: option function to apply
func WithLoader(l loader.Loader) SceneManagerBuilderOption {
	return func(m *sceneManager) {
		m.loader = l
	}
}

// WithAssetRoot sets the asset root of the loader the manager creates when WithLoader is not
// given. Meshes are read from root/Meshes and textures from root/Textures.
//
// Parameters:
//   - root: the asset root directory
//
// Returns:
//   - SceneManagerBuilderOption: option function to apply
func WithAssetRoot(root string) SceneManagerBuilderOption {
	return func(m *sceneManager) {
		m.assetRoot = root
	}
}

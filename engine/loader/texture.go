package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// TextureExtensions lists the image extensions tried, in order, when a texture name has none.
var TextureExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}

// CubeFaces are the face suffixes of a cube map in layer order.
var CubeFaces = [6]string{"px", "nx", "py", "ny", "pz", "nz"}

// decodeTextureFile decodes the image at path into RGBA8 pixels.
func decodeTextureFile(path string) (common.TextureStagingData, error) {
	f, err := os.Open(path)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	defer f.Close()

	tex, _, err := common.DecodeImage(f)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("%s: %w", path, err)
	}
	if tex.Width == 0 || tex.Height == 0 {
		return common.TextureStagingData{}, fmt.Errorf("%s: empty image", path)
	}
	return tex, nil
}

// resolveAsset finds the file for an asset name inside dir. A name that carries one of exts is
// used as written; otherwise each extension is tried in order.
func resolveAsset(dir, name string, exts []string) (string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	if slices.Contains(exts, strings.ToLower(filepath.Ext(name))) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	for _, ext := range exts {
		if _, err := os.Stat(path + ext); err == nil {
			return path + ext, nil
		}
	}
	return "", fmt.Errorf("%s: %w (tried %s)", path, os.ErrNotExist, strings.Join(exts, ", "))
}

// resolveCubeFace finds one face of the cube map base, either base/<face>.<ext> or
// base_<face>.<ext>.
func resolveCubeFace(dir, base, face string) (string, error) {
	if p, err := resolveAsset(dir, filepath.Join(base, face), TextureExtensions); err == nil {
		return p, nil
	}
	return resolveAsset(dir, base+"_"+face, TextureExtensions)
}

// assembleCubeMap validates six decoded faces and brings them to the size of the first face.
func assembleCubeMap(name string, faces [6]common.TextureStagingData) ([6]common.TextureStagingData, error) {
	size := faces[0].Width
	if faces[0].Height != size {
		return faces, fmt.Errorf("cube map %q: face %s is %dx%d, faces must be square", name, CubeFaces[0], faces[0].Width, faces[0].Height)
	}
	for i := 1; i < len(faces); i++ {
		if faces[i].Width != faces[i].Height {
			return faces, fmt.Errorf("cube map %q: face %s is %dx%d, faces must be square", name, CubeFaces[i], faces[i].Width, faces[i].Height)
		}
		faces[i] = common.Resize(faces[i], size, size)
	}
	return faces, nil
}

package loader

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const testScene = `# two crates
crates
0 2 -10          # camera position
0 0 0 1
0.3 -1 0.2
1 0.95 0.9
2
crate crate_diffuse crate_normal
0 0 0
0 0 0 1
1 1 1
crate floor_diffuse crate_normal
0 -1 0  0 0 0 1  10 0.1 10
`

const testMesh = `3 3
0 0 0  0 0 -1  1 0 0  0 1
0 1 0  0 0 -1  1 0 0  0 0
1 0 0  0 0 -1  1 0 0  1 1
0 1 2
`

func TestParseScene(t *testing.T) {
	d, err := ParseScene(strings.NewReader(testScene))
	if err != nil {
		t.Fatalf("ParseScene: %v", err)
	}
	if d.Name != "crates" || d.CameraPosition != [3]float32{0, 2, -10} || d.LightStrength != [3]float32{1, 0.95, 0.9} {
		t.Errorf("header = %+v", d)
	}
	if len(d.Objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(d.Objects))
	}
	floor := d.Objects[1]
	if floor.DiffuseOpacity != "floor_diffuse" || floor.Position != [3]float32{0, -1, 0} || floor.Scale != [3]float32{10, 0.1, 10} {
		t.Errorf("floor = %+v", floor)
	}
	if got := d.MeshNames(); len(got) != 1 || got[0] != "crate" {
		t.Errorf("MeshNames() = %v", got)
	}
	if got := d.TextureNames(); strings.Join(got, ",") != "crate_diffuse,crate_normal,floor_diffuse" {
		t.Errorf("TextureNames() = %v", got)
	}
}

func TestParseSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "scene name"},
		{"bad number", "s 0 0 x", "line 1"},
		{"bad count", "s 0 0 0 0 0 0 1 0 -1 0 1 1 1 -2", "object count"},
		{"truncated object", "s 0 0 0 0 0 0 1 0 -1 0 1 1 1 1 mesh a b 0 0", "object 0 position"},
		{"trailing", "s 0 0 0 0 0 0 1 0 -1 0 1 1 1 0 extra", "trailing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScene(strings.NewReader(tt.src))
			if !errors.Is(err, ErrInvalidSceneFile) {
				t.Fatalf("error = %v, want ErrInvalidSceneFile", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseMesh(t *testing.T) {
	m, err := ParseMesh("tri", strings.NewReader(testMesh))
	if err != nil {
		t.Fatalf("ParseMesh: %v", err)
	}
	if len(m.Vertices) != 3 || len(m.Indices) != 3 || len(m.Submeshes) != 1 {
		t.Fatalf("mesh = %d vertices, %d indices, %d submeshes", len(m.Vertices), len(m.Indices), len(m.Submeshes))
	}
	v := m.Vertices[2]
	if v.Position != [3]float32{1, 0, 0} || v.Normal != [3]float32{0, 0, -1} || v.Tangent != [3]float32{1, 0, 0} || v.TexCoord != [2]float32{1, 1} {
		t.Errorf("vertex 2 = %+v", v)
	}
	if m.Submeshes[0].IndexCount != 3 || m.Submeshes[0].Name != "tri" {
		t.Errorf("submesh = %+v", m.Submeshes[0])
	}
}

func TestParseMeshErrors(t *testing.T) {
	tests := map[string]string{
		"index out of range": "3 3\n" + strings.Repeat("0 0 0 0 0 0 0 0 0 0 0\n", 3) + "0 1 3\n",
		"not triangles":      "3 2\n" + strings.Repeat("0 0 0 0 0 0 0 0 0 0 0\n", 3) + "0 1\n",
		"short vertex":       "1 0\n0 0 0\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseMesh("bad", strings.NewReader(src)); !errors.Is(err, ErrInvalidMeshFile) {
				t.Errorf("error = %v, want ErrInvalidMeshFile", err)
			}
		})
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
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

// newAssetRoot writes the crate scene, its mesh, textures and a sky box under a temp root.
func newAssetRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "crates.txt"), testScene)
	writeFile(t, filepath.Join(root, "Meshes", "crate.txt"), testMesh)
	for _, name := range []string{"crate_diffuse", "crate_normal", "floor_diffuse"} {
		writePNG(t, filepath.Join(root, "Textures", name+".png"), 4, 4, color.RGBA{R: 200, A: 255})
	}
	for i, face := range CubeFaces {
		size := 8
		if i == 3 {
			size = 4
		}
		writePNG(t, filepath.Join(root, "Textures", "SkyBox", face+".png"), size, size, color.RGBA{B: 255, A: 255})
	}
	return root
}

func TestLoadSceneAssets(t *testing.T) {
	root := newAssetRoot(t)
	l := NewLoader(WithAssetRoot(root), WithWorkers(2))
	defer l.Release()

	desc, err := l.LoadSceneFile(filepath.Join(root, "crates.txt"))
	if err != nil {
		t.Fatalf("LoadSceneFile: %v", err)
	}
	assets, err := l.LoadSceneAssets(desc)
	if err != nil {
		t.Fatalf("LoadSceneAssets: %v", err)
	}
	if len(assets.Meshes) != 1 || len(assets.Textures) != 3 {
		t.Fatalf("loaded %d meshes and %d textures", len(assets.Meshes), len(assets.Textures))
	}
	if tex := assets.Textures["floor_diffuse"]; tex.Width != 4 || tex.Pixels[0] != 200 {
		t.Errorf("floor_diffuse = %dx%d first byte %d", tex.Width, tex.Height, tex.Pixels[0])
	}
	for i, face := range assets.SkyBox {
		if face.Width != 8 || face.Height != 8 {
			t.Errorf("sky box face %s is %dx%d, want 8x8", CubeFaces[i], face.Width, face.Height)
		}
	}
	if assets.ColorLUT != nil {
		t.Error("missing color grading table should load as nil")
	}

	again, err := l.LoadMesh("crate")
	if err != nil {
		t.Fatalf("LoadMesh: %v", err)
	}
	if again != assets.Meshes["crate"] {
		t.Error("mesh was decoded twice instead of served from the cache")
	}
}

func TestLoadSceneAssetsMissingTexture(t *testing.T) {
	root := newAssetRoot(t)
	if err := os.Remove(filepath.Join(root, "Textures", "crate_normal.png")); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(WithAssetRoot(root))
	defer l.Release()

	desc, err := l.LoadSceneFile(filepath.Join(root, "crates.txt"))
	if err != nil {
		t.Fatal(err)
	}
	assets, err := l.LoadSceneAssets(desc)
	if err == nil || assets != nil {
		t.Fatal("scene with a missing texture loaded")
	}
	if !errors.Is(err, os.ErrNotExist) || !strings.Contains(err.Error(), "crate_normal") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadCubeMapRejectsNonSquareFace(t *testing.T) {
	root := newAssetRoot(t)
	writePNG(t, filepath.Join(root, "Textures", "SkyBox", "pz.png"), 8, 4, color.RGBA{A: 255})
	l := NewLoader(WithAssetRoot(root))
	if _, err := l.LoadCubeMap("SkyBox"); err == nil || !strings.Contains(err.Error(), "square") {
		t.Errorf("error = %v, want a square-face error", err)
	}
}

func TestLoadCubeMapPrefixedFaces(t *testing.T) {
	dir := t.TempDir()
	for _, face := range CubeFaces {
		writePNG(t, filepath.Join(dir, "Night_"+face+".png"), 2, 2, color.RGBA{A: 255})
	}
	faces, err := NewLoader(WithTextureDir(dir)).LoadCubeMap("Night")
	if err != nil {
		t.Fatalf("LoadCubeMap: %v", err)
	}
	if faces[5].Width != 2 {
		t.Errorf("face nz width = %d", faces[5].Width)
	}
}

func TestLoadGLBMesh(t *testing.T) {
	dir := t.TempDir()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{"POSITION": pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0), Translation: [3]float64{5, 0, 0}}}
	doc.Scenes[0].Nodes = []int{0}
	if err := gltf.SaveBinary(doc, filepath.Join(dir, "tri.glb")); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}

	m, err := NewLoader(WithMeshDir(dir)).LoadMesh("tri")
	if err != nil {
		t.Fatalf("LoadMesh: %v", err)
	}
	if len(m.Vertices) != 3 || len(m.Submeshes) != 1 || m.Submeshes[0].IndexCount != 3 {
		t.Fatalf("mesh = %+v", m)
	}
	if m.Vertices[2].Position != [3]float32{6, 0, 0} {
		t.Errorf("node translation not baked: %v", m.Vertices[2].Position)
	}
	if m.Vertices[0].Normal != [3]float32{0, 1, 0} {
		t.Errorf("missing normals should default to +Y, got %v", m.Vertices[0].Normal)
	}
	if tan := m.Vertices[0].Tangent; tan[0]*tan[0]+tan[1]*tan[1]+tan[2]*tan[2] < 0.99 {
		t.Errorf("tangent not generated: %v", tan)
	}
}

func TestResolveAssetUnsupportedMesh(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewLoader(WithMeshDir(dir)).LoadMesh("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

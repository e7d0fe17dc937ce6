package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSceneFile is returned when a scene description cannot be parsed.
	ErrInvalidSceneFile = errors.New("invalid scene file")

	// ErrInvalidMeshFile is returned when a text mesh cannot be parsed.
	ErrInvalidMeshFile = errors.New("invalid mesh file")
)

// ObjectDesc is one object entry of a scene description.
type ObjectDesc struct {
	// Mesh is the mesh name, resolved against the loader's mesh directory.
	Mesh string
	// DiffuseOpacity is the texture holding diffuse rgb and opacity in alpha.
	DiffuseOpacity string
	// NormalRoughness is the texture holding the tangent-space normal and roughness in alpha.
	NormalRoughness string

	Position [3]float32
	// Rotation is a unit quaternion (x, y, z, w).
	Rotation [4]float32
	Scale    [3]float32
}

// SceneDesc is a parsed scene description, exactly as written in the file.
type SceneDesc struct {
	Name           string
	CameraPosition [3]float32
	// CameraRotation is the camera quaternion (x, y, z, w) as written in the file.
	CameraRotation [4]float32
	LightDirection [3]float32
	LightStrength  [3]float32
	Objects        []ObjectDesc
}

// MeshNames returns the distinct mesh names referenced by the scene, in first-use order.
func (d *SceneDesc) MeshNames() []string {
	return distinct(len(d.Objects), func(i int) []string { return []string{d.Objects[i].Mesh} })
}

// TextureNames returns the distinct texture names referenced by the scene, in first-use order.
func (d *SceneDesc) TextureNames() []string {
	return distinct(len(d.Objects), func(i int) []string {
		return []string{d.Objects[i].DiffuseOpacity, d.Objects[i].NormalRoughness}
	})
}

func distinct(n int, names func(i int) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range n {
		for _, name := range names(i) {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// token is one whitespace-separated word with the line it came from.
type token struct {
	text string
	line int
}

// tokenReader walks the tokens of a line-oriented text asset. Everything after a '#' on a
// line is a comment.
type tokenReader struct {
	tokens []token
	pos    int
	kind   error
}

func newTokenReader(r io.Reader, kind error) (*tokenReader, error) {
	t := &tokenReader{kind: kind}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, f := range strings.Fields(text) {
			t.tokens = append(t.tokens, token{text: f, line: line})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", kind, err)
	}
	return t, nil
}

func (t *tokenReader) next(what string) (token, error) {
	if t.pos >= len(t.tokens) {
		return token{}, fmt.Errorf("%w: unexpected end of file reading %s", t.kind, what)
	}
	tok := t.tokens[t.pos]
	t.pos++
	return tok, nil
}

func (t *tokenReader) word(what string) (string, error) {
	tok, err := t.next(what)
	return tok.text, err
}

func (t *tokenReader) count(what string) (int, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: line %d: %s %q is not a count", t.kind, tok.line, what, tok.text)
	}
	return n, nil
}

func (t *tokenReader) floats(what string, out []float32) error {
	for i := range out {
		tok, err := t.next(what)
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(tok.text, 32)
		if err != nil {
			return fmt.Errorf("%w: line %d: %s component %d %q is not a number", t.kind, tok.line, what, i, tok.text)
		}
		out[i] = float32(v)
	}
	return nil
}

func (t *tokenReader) trailing() error {
	if t.pos < len(t.tokens) {
		tok := t.tokens[t.pos]
		return fmt.Errorf("%w: line %d: unexpected trailing token %q", t.kind, tok.line, tok.text)
	}
	return nil
}

// ParseScene reads a scene description: name, camera position (3), camera rotation (4), light
// direction (3), light strength (3), object count, then per object the mesh name, the
// diffuse-opacity and normal-roughness texture names, position (3), rotation (4) and scale (3).
//
// Parameters:
//   - r: the scene file contents
//
// Returns:
//   - *SceneDesc: the parsed description
//   - error: ErrInvalidSceneFile wrapped with the offending line
func ParseScene(r io.Reader) (*SceneDesc, error) {
	t, err := newTokenReader(r, ErrInvalidSceneFile)
	if err != nil {
		return nil, err
	}
	d := &SceneDesc{}
	if d.Name, err = t.word("scene name"); err != nil {
		return nil, err
	}
	if err := t.floats("camera position", d.CameraPosition[:]); err != nil {
		return nil, err
	}
	if err := t.floats("camera rotation", d.CameraRotation[:]); err != nil {
		return nil, err
	}
	if err := t.floats("light direction", d.LightDirection[:]); err != nil {
		return nil, err
	}
	if err := t.floats("light strength", d.LightStrength[:]); err != nil {
		return nil, err
	}
	n, err := t.count("object count")
	if err != nil {
		return nil, err
	}

	d.Objects = make([]ObjectDesc, n)
	for i := range d.Objects {
		o := &d.Objects[i]
		what := fmt.Sprintf("object %d", i)
		if o.Mesh, err = t.word(what + " mesh"); err != nil {
			return nil, err
		}
		if o.DiffuseOpacity, err = t.word(what + " diffuse texture"); err != nil {
			return nil, err
		}
		if o.NormalRoughness, err = t.word(what + " normal texture"); err != nil {
			return nil, err
		}
		if err := t.floats(what+" position", o.Position[:]); err != nil {
			return nil, err
		}
		if err := t.floats(what+" rotation", o.Rotation[:]); err != nil {
			return nil, err
		}
		if err := t.floats(what+" scale", o.Scale[:]); err != nil {
			return nil, err
		}
	}
	if err := t.trailing(); err != nil {
		return nil, err
	}
	return d, nil
}

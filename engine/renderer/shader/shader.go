package shader

import (
	"embed"
	"fmt"
	"path"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets
var assets embed.FS

// mustAsset returns an embedded asset or panics if it is missing.
func mustAsset(name string) string {
	data, err := assets.ReadFile(path.Join("assets", name))
	if err != nil {
		panic(fmt.Sprintf("shader: missing embedded asset %q: %v", name, err))
	}
	return string(data)
}

// ShaderType identifies whether a shader is a render shader or a compute shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeRender indicates a shader containing a @vertex and a @fragment entry point.
	ShaderTypeRender
)

// String returns the lower-case name of the shader type.
func (t ShaderType) String() string {
	if t == ShaderTypeRender {
		return "render"
	}
	return "compute"
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key             string
	source          string
	shaderType      ShaderType
	bindGroups      map[int][]gpu.BindingLayout
	bindingVarNames map[int]map[int]string
	vertexLayouts   []gpu.VertexBufferLayout
	workGroupSize   [3]uint32
	entryPoints     map[wgpu.ShaderStage]string

	pp PreProcessor
}

// Shader defines the interface for a loaded and reflected WGSL shader. It exposes the shader's
// unique key, pre-processed source code, entry points, bind group layouts, vertex buffer layouts,
// workgroup size, and pre-processor declarations needed for pipeline creation and resource binding.
type Shader interface {
	// Key retrieves the unique identifier for this shader, which is also its asset name.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns whether the shader is a render or a compute shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeRender or ShaderTypeCompute
	ShaderType() ShaderType

	// Visibility returns the stages that reflected bindings are visible to.
	//
	// Returns:
	//   - wgpu.ShaderStage: vertex|fragment for render shaders, compute for compute shaders
	Visibility() wgpu.ShaderStage

	// EntryPoint returns the entry point name for a stage.
	//
	// Parameters:
	//   - stage: wgpu.ShaderStageVertex, wgpu.ShaderStageFragment or wgpu.ShaderStageCompute
	//
	// Returns:
	//   - string: the entry point name, or empty if the shader has none for stage
	EntryPoint(stage wgpu.ShaderStage) string

	// BindGroupLayout retrieves the reflected binding layouts of one group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - []gpu.BindingLayout: the layout entries sorted by binding, or nil if the group is unused
	BindGroupLayout(group int) []gpu.BindingLayout

	// BindGroupLayouts retrieves all reflected binding layouts keyed by group index.
	//
	// Returns:
	//   - map[int][]gpu.BindingLayout: layout entries keyed by group index
	BindGroupLayouts() map[int][]gpu.BindingLayout

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name associated with the group and binding, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// BindGroupVarNames retrieves all variable names for all bind groups.
	//
	// Returns:
	//   - map[int]map[int]string: variable names keyed by group and binding index
	BindGroupVarNames() map[int]map[int]string

	// VertexLayouts retrieves the vertex buffer layouts of a render shader, one per vertex input struct.
	//
	// Returns:
	//   - []gpu.VertexBufferLayout: the vertex buffer layouts, nil for compute shaders
	VertexLayouts() []gpu.VertexBufferLayout

	// WorkgroupSize returns the workgroup size dimensions for compute shaders.
	// Returns [0, 0, 0] for render shaders and [1, 1, 1] as the default when
	// @workgroup_size is not specified.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Declarations returns the @oxy:group annotations parsed from the shader source.
	//
	// Returns:
	//   - []Annotation: the group declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader loads the embedded shader asset named key, pre-processes it and reflects it.
// A missing or malformed shader is a programming error and panics.
//
// Parameters:
//   - key: the asset name without extension, e.g. "gbuffer"
//   - shaderType: whether the asset is a render or a compute shader
//
// Returns:
//   - Shader: the reflected shader
func NewShader(key string, shaderType ShaderType) Shader {
	data, err := assets.ReadFile(path.Join("assets", key+".wgsl"))
	if err != nil {
		panic(fmt.Sprintf("shader: %s has no embedded source: %v", key, err))
	}
	s, err := NewShaderFromSource(key, shaderType, string(data))
	if err != nil {
		panic(err.Error())
	}
	return s
}

// NewShaderFromSource pre-processes and reflects WGSL source.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: whether the source is a render or a compute shader
//   - source: the raw WGSL source, which may contain @oxy: annotations
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if pre-processing or reflection fails or an entry point is missing
func NewShaderFromSource(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:         key,
		shaderType:  shaderType,
		entryPoints: make(map[wgpu.ShaderStage]string),
		pp:          NewPreProcessor(),
	}
	if err := s.parseSource(source); err != nil {
		return nil, fmt.Errorf("shader: %s: %w", key, err)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Visibility() wgpu.ShaderStage {
	if s.shaderType == ShaderTypeRender {
		return wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	}
	return wgpu.ShaderStageCompute
}

func (s *shader) EntryPoint(stage wgpu.ShaderStage) string {
	return s.entryPoints[stage]
}

func (s *shader) BindGroupLayout(group int) []gpu.BindingLayout {
	return s.bindGroups[group]
}

func (s *shader) BindGroupLayouts() map[int][]gpu.BindingLayout {
	return s.bindGroups
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) VertexLayouts() []gpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

// parseSource pre-processes the WGSL source, parses the entry points, and extracts
// layout metadata appropriate for the shader type. Render shaders get vertex buffer
// layouts parsed. Compute shaders get workgroup size parsed. All shader types get
// bind group layouts parsed.
func (s *shader) parseSource(raw string) error {
	var err error
	s.source, err = s.pp.Process(raw)
	if err != nil {
		return fmt.Errorf("pre-process: %w", err)
	}

	switch s.shaderType {
	case ShaderTypeRender:
		for _, stage := range []wgpu.ShaderStage{wgpu.ShaderStageVertex, wgpu.ShaderStageFragment} {
			entry := parseEntryPoint(s.source, stage)
			if entry == "" {
				return fmt.Errorf("render shader has no entry point for stage %d", stage)
			}
			s.entryPoints[stage] = entry
		}
		if s.vertexLayouts, err = parseVertexLayouts(s.source); err != nil {
			return err
		}
	case ShaderTypeCompute:
		entry := parseEntryPoint(s.source, wgpu.ShaderStageCompute)
		if entry == "" {
			return fmt.Errorf("compute shader has no @compute entry point")
		}
		s.entryPoints[wgpu.ShaderStageCompute] = entry
		s.workGroupSize = parseWorkgroupSize(s.source)
	default:
		return fmt.Errorf("unknown shader type %d", s.shaderType)
	}

	if s.bindGroups, err = parseBindGroupLayouts(s.source, s.Visibility()); err != nil {
		return err
	}
	s.bindingVarNames = make(map[int]map[int]string, len(s.bindGroups))
	for group, entries := range s.bindGroups {
		names := make(map[int]string, len(entries))
		for _, e := range entries {
			names[int(e.Binding)] = e.Name
		}
		s.bindingVarNames[group] = names
	}
	return nil
}

package bind_group_provider

import "github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithTexture registers a texture under a shader variable name.
//
// Parameters:
//   - name: the shader variable name
//   - tex: the texture to bind
//
// Returns:
//   - BindGroupProviderOption: a function that registers the texture
func WithTexture(name string, tex gpu.Texture) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textures[name] = tex
	}
}

// WithTextures registers several textures keyed by shader variable name.
//
// Parameters:
//   - textures: the textures keyed by variable name
//
// Returns:
//   - BindGroupProviderOption: a function that registers the textures
func WithTextures(textures map[string]gpu.Texture) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for name, tex := range textures {
			p.textures[name] = tex
		}
	}
}

// WithSamplers registers samplers keyed by shader variable name, typically the renderer's
// static samplers.
//
// Parameters:
//   - samplers: the samplers keyed by variable name
//
// Returns:
//   - BindGroupProviderOption: a function that registers the samplers
func WithSamplers(samplers map[string]gpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for name, s := range samplers {
			p.samplers[name] = s
		}
	}
}

// WithBuffer registers a whole buffer under a shader variable name.
//
// Parameters:
//   - name: the shader variable name
//   - buf: the buffer to bind
//
// Returns:
//   - BindGroupProviderOption: a function that registers the buffer
func WithBuffer(name string, buf gpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[name] = bufferRange{buffer: buf}
	}
}

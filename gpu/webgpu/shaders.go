package webgpu

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Shaders maps a shader name to its WGSL source.
type Shaders map[string]string

// LoadShaderDir reads every *.wgsl file in dir, keyed by file name without
// the extension.
func LoadShaderDir(dir string) (Shaders, error) {
	return LoadShaderFS(os.DirFS(dir), ".")
}

// LoadShaderFS is LoadShaderDir over any file system, e.g. an embed.FS.
func LoadShaderFS(fsys fs.FS, dir string) (Shaders, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading shader dir: %w", err)
	}
	out := make(Shaders)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".wgsl" {
			continue
		}
		code, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading shader %s: %w", e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), ".wgsl")] = string(code)
	}
	return out, nil
}

// Merge copies other over s, replacing shaders of the same name.
func (s Shaders) Merge(other Shaders) {
	for k, v := range other {
		s[k] = v
	}
}

func (s Shaders) source(name string) (string, error) {
	code, ok := s[name]
	if !ok {
		return "", fmt.Errorf("shader %q not loaded", name)
	}
	return code, nil
}

// splitKernel splits "Shader/Entry" into its shader and entry point.
func splitKernel(kernel string) (shader, entry string, err error) {
	i := strings.LastIndex(kernel, "/")
	if i <= 0 || i == len(kernel)-1 {
		return "", "", fmt.Errorf("kernel %q is not shader/entry", kernel)
	}
	return kernel[:i], kernel[i+1:], nil
}

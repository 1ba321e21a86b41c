package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/hcl"
	"github.com/vk/gridci/internal/yaml"
)

// LoaderFor picks the definition loader matching a path: .yaml/.yml files
// get the YAML loader, .hcl files and directories get the HCL loader.
func LoaderFor(path string) (config.Loader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read pipeline definition path: %w", err)
	}
	if info.IsDir() {
		return hcl.NewLoader(), nil
	}

	switch filepath.Ext(path) {
	case ".hcl":
		return hcl.NewLoader(), nil
	case ".yaml", ".yml":
		return yaml.NewLoader(), nil
	}
	return nil, fmt.Errorf("unsupported pipeline definition format %q", filepath.Ext(path))
}

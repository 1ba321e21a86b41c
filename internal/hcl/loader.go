package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/fsutil"
	"github.com/vk/gridci/internal/schema"
)

// Loader loads pipeline definitions from HCL files. It implements
// config.Loader.
type Loader struct{}

// NewLoader returns a new HCL definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the definition at path, which may be a single .hcl file or a
// directory of them. Exactly one pipeline block must be present across the
// parsed files.
func (l *Loader) Load(ctx context.Context, path string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline definition.", "path", path)

	files, err := definitionFiles(path)
	if err != nil {
		return nil, &config.MalformedDefinitionError{Path: path, Err: err}
	}
	if len(files) == 0 {
		return nil, &config.MalformedDefinitionError{Path: path, Err: errors.New("no .hcl definition files found")}
	}

	parser := hclparse.NewParser()
	var pipelines []*schema.Pipeline
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, &config.MalformedDefinitionError{Path: file, Err: diags}
		}

		var parsed schema.File
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
			return nil, &config.MalformedDefinitionError{Path: file, Err: diags}
		}
		pipelines = append(pipelines, parsed.Pipelines...)
	}

	if len(pipelines) != 1 {
		return nil, &config.MalformedDefinitionError{
			Path: path,
			Err:  fmt.Errorf("expected exactly one pipeline block, found %d", len(pipelines)),
		}
	}

	model, err := translatePipeline(pipelines[0])
	if err != nil {
		return nil, err
	}
	if err := config.Validate(model); err != nil {
		return nil, err
	}

	logger.Debug("Pipeline definition loaded.", "pipeline", model.Name, "jobs", len(model.Jobs))
	return model, nil
}

// definitionFiles resolves a path into the list of .hcl files to parse.
func definitionFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return fsutil.FindFilesByExtension(path, ".hcl")
}

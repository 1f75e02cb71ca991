// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges the blocks into
// one model. At most one scheduler and one worker block may exist across all
// files, and array names must be unique.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{}
	seenArrays := make(map[string]string)

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	evalCtx := baseEvalContext()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range root.Schedulers {
			if model.Scheduler != nil {
				return nil, fmt.Errorf("%s: duplicate scheduler block", file)
			}
			model.Scheduler = l.translateScheduler(s)
		}
		for _, w := range root.Workers {
			if model.Worker != nil {
				return nil, fmt.Errorf("%s: duplicate worker block", file)
			}
			model.Worker = l.translateWorker(w)
		}
		for _, a := range root.Arrays {
			if prev, dup := seenArrays[a.Name]; dup {
				return nil, fmt.Errorf("%s: array %q is already declared in %s", file, a.Name, prev)
			}
			seenArrays[a.Name] = file

			job, err := l.translateArray(ctx, a)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Arrays = append(model.Arrays, job)
		}
	}

	logger.Debug("HCL loading complete.",
		"scheduler", model.Scheduler != nil, "worker", model.Worker != nil,
		"arrays", len(model.Arrays), "tasks", model.TaskCount())
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a sorted list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				add(p)
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	slices.Sort(allFiles)
	return allFiles, nil
}

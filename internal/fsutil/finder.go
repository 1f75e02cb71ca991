// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
)

// ErrNoExtension is returned when FindFilesByExtension is called without an
// extension.
var ErrNoExtension = errors.New("fsutil: extension must not be empty")

// FindFilesByExtension recursively searches root for regular files whose
// extension is ext (including the dot, e.g. ".hcl"). Paths are returned in
// lexical order.
func FindFilesByExtension(root string, ext string) ([]string, error) {
	if ext == "" {
		return nil, ErrNoExtension
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && filepath.Ext(d.Name()) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

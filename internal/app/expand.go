// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/arraydef"
	"github.com/vk/taskgrid/internal/ctxlog"
)

// runExpand prints the ids of the ranges given on the command line, one per
// line. Without ranges it prints every array task of the configuration as
// "array<TAB>id<TAB>spec".
func (a *App) runExpand(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if len(a.config.Ranges) > 0 {
		defs, err := arraydef.ParseList(a.config.Ranges...)
		if err != nil {
			return err
		}
		for _, def := range defs {
			logger.Debug("Expanding range.", "range", def.String(), "len", def.Len())
			for id := range def.All() {
				if _, err := fmt.Fprintln(a.outW, id); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, array := range a.model.Arrays {
		for id := range array.Range.All() {
			spec, err := array.Render(id)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(a.outW, "%s\t%s\t%s\n", array.Name, id, spec); err != nil {
				return err
			}
		}
	}
	return nil
}

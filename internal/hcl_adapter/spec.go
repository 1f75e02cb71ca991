// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/taskgrid/internal/taskid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// exprRenderer evaluates an array's spec expression once per task.
type exprRenderer struct {
	expr hcl.Expression
}

// Render implements config.SpecRenderer.
func (r *exprRenderer) Render(array string, id taskid.JobTaskID) ([]byte, error) {
	evalCtx := baseEvalContext()
	evalCtx.Variables = map[string]cty.Value{
		"task_id": cty.NumberUIntVal(uint64(id)),
		"array":   cty.StringVal(array),
	}

	val, diags := r.expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("array %q task %s: %w", array, id, diags)
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return nil, fmt.Errorf("array %q task %s: spec must be a string: %w", array, id, err)
	}
	if str.IsNull() || !str.IsKnown() {
		return nil, fmt.Errorf("array %q task %s: spec evaluated to null", array, id)
	}
	return []byte(str.AsString()), nil
}

// taskIDRenderer is used when an array declares no spec: the payload is the
// decimal task id.
func taskIDRenderer(_ string, id taskid.JobTaskID) ([]byte, error) {
	return []byte(id.String()), nil
}

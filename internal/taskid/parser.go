// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package taskid

import (
	"fmt"
	"strconv"
)

// ParseTaskID parses the decimal representation of a TaskID.
func ParseTaskID(raw string) (TaskID, error) {
	v, err := parseUint(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q: %w", raw, err)
	}
	return TaskID(v), nil
}

// ParseWorkerID parses the decimal representation of a WorkerID.
func ParseWorkerID(raw string) (WorkerID, error) {
	v, err := parseUint(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid worker id %q: %w", raw, err)
	}
	return WorkerID(v), nil
}

// parseUint accepts ASCII digits only; strconv would otherwise accept
// underscores with base 0, and we never want a sign.
func parseUint(raw string, bits int) (uint64, error) {
	if raw == "" {
		return 0, fmt.Errorf("identifier cannot be empty")
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, fmt.Errorf("unexpected character %q at offset %d", raw[i], i)
		}
	}
	return strconv.ParseUint(raw, 10, bits)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package arraydef

import (
	"fmt"
	"regexp"
	"strconv"
)

// rangeRegex matches the whole token; [0-9] rather than \d keeps it ASCII only.
var rangeRegex = regexp.MustCompile(`^([0-9]+)(?:-([0-9]+))?$`)

// Parse turns a range token ("N" or "A-B") into an ArrayDef.
func Parse(input string) (ArrayDef, error) {
	if input == "" {
		return ArrayDef{}, &ParseError{Input: input, Reason: "input is empty"}
	}

	matches := rangeRegex.FindStringSubmatch(input)
	if matches == nil {
		return ArrayDef{}, &ParseError{Input: input, Reason: "expected UINT or UINT-UINT"}
	}

	start, err := parseUint32(input, matches[1])
	if err != nil {
		return ArrayDef{}, err
	}
	if matches[2] == "" {
		r, err := NewTaskIDRange(start, 1)
		if err != nil {
			return ArrayDef{}, &ParseError{Input: input, Reason: err.Error()}
		}
		return New(r), nil
	}

	end, err := parseUint32(input, matches[2])
	if err != nil {
		return ArrayDef{}, err
	}
	if end < start {
		return ArrayDef{}, fmt.Errorf("%q: end %d is before start %d: %w", input, end, start, ErrInvalidRange)
	}

	length := uint64(end) - uint64(start) + 1
	if length > uint64(^uint32(0)) {
		return ArrayDef{}, &ParseError{Input: input, Reason: "range covers more than 2^32-1 ids"}
	}

	r, err := NewTaskIDRange(start, uint32(length))
	if err != nil {
		return ArrayDef{}, &ParseError{Input: input, Reason: err.Error()}
	}
	return New(r), nil
}

// ParseList parses every token and fails on the first bad one, so a caller
// never sees a partially expanded submission.
func ParseList(inputs ...string) ([]ArrayDef, error) {
	defs := make([]ArrayDef, 0, len(inputs))
	for _, in := range inputs {
		def, err := Parse(in)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseUint32(input, digits string) (uint32, error) {
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		// Unreachable for syntax due to the regex; only overflow gets here.
		return 0, &ParseError{Input: input, Reason: fmt.Sprintf("%s does not fit in 32 bits", digits)}
	}
	return uint32(v), nil
}

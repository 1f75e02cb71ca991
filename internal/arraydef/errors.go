// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package arraydef

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when the end of a range lies before its start.
var ErrInvalidRange = errors.New("invalid range")

// ParseError reports a token that does not match the range grammar.
type ParseError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse array range %q: %s", e.Input, e.Reason)
}

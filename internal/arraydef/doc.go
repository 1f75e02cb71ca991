// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package arraydef parses the compact range syntax used to declare array jobs
and enumerates the task identifiers it covers.

The accepted grammar is

	range := UINT | UINT "-" UINT
	UINT  := [0-9]+   (must fit in 32 bits)

Both bounds are inclusive. Parsing is all-or-nothing: a token with trailing
characters, whitespace or a sign is rejected as a whole, and "A-B" with B < A
is rejected instead of being clamped or reversed.

Identifiers are produced lazily through iter.Seq, so a range such as
"0-4000000000" costs nothing until it is iterated.
*/
package arraydef

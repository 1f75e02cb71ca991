// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package taskid provides the identifier and scalar value types shared by the
scheduler and the workers.

Identifiers are plain unsigned integers on the wire. They are opaque to every
package except this one: nothing derives meaning from their numeric value
beyond equality and ordering used for deterministic output.
*/
package taskid

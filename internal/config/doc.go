// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package config defines the format-agnostic configuration model of a
// taskgrid cluster, along with the Loader interface for reading it from
// various sources.
//
// The HCL implementation lives in the hcl_adapter package. Everything that
// runs a scheduler or a worker consumes only this model.
package config

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Schedulers []*Scheduler `hcl:"scheduler,block"`
	Workers    []*Worker    `hcl:"worker,block"`
	Arrays     []*Array     `hcl:"array,block"`
	Remain     hcl.Body     `hcl:",remain"`
}

// Scheduler is the HCL schema of a `scheduler` block.
type Scheduler struct {
	Listen          string `hcl:"listen,optional"`
	HealthcheckPort int    `hcl:"healthcheck_port,optional"`
	ExitWhenDone    bool   `hcl:"exit_when_done,optional"`
}

// Worker is the HCL schema of a `worker` block.
type Worker struct {
	Server      string `hcl:"server,optional"`
	Address     string `hcl:"address,optional"`
	Concurrency int    `hcl:"concurrency,optional"`
	Shell       string `hcl:"shell,optional"`
}

// Array is the HCL schema of an `array` block.
type Array struct {
	Name         string         `hcl:"name,label"`
	Range        string         `hcl:"range"`
	TypeID       uint32         `hcl:"type_id,optional"`
	UserPriority int32          `hcl:"user_priority,optional"`
	Spec         hcl.Expression `hcl:"spec,optional"`
}

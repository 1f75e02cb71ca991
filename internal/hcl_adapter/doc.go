// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hcl_adapter implements config.Loader for HCL files.
//
// A configuration may be split across any number of .hcl files and
// directories. The recognised top-level blocks are:
//
//	scheduler {
//	  listen           = ":7760"
//	  healthcheck_port = 7761
//	  exit_when_done   = true
//	}
//
//	worker {
//	  server      = "http://localhost:7760/socket.io/"
//	  address     = "10.0.0.5:7800"
//	  concurrency = 4
//	  shell       = "/bin/sh"
//	}
//
//	array "render" {
//	  range         = "1-100"
//	  type_id       = 1
//	  user_priority = 5
//	  spec          = "render --frame ${task_id}"
//	}
//
// Attributes may call env(name) and a few string functions. The spec
// expression of an array is kept unevaluated and rendered once per task with
// the variables task_id and array.
package hcl_adapter

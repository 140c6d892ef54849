// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/supplymri/supplymri/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}

// kubetree - Kubernetes ownership trees on demand
//
// kubetree shows the objects a Kubernetes resource owns using the
// kubectl-tree plugin, installing the plugin when it is missing.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import (
	"github.com/jmylchreest/kubetree/internal/cli"
)

func main() {
	cli.Execute()
}

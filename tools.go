//go:build tools
// +build tools

// Package tools tracks code generators used via go generate (mockgen) as
// module dependencies so go.mod and go.sum stay in sync.
package roomchat

import (
	_ "go.uber.org/mock/mockgen"
)

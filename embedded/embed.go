// Package embedded provides default data files compiled into the sessionhooks
// binary. The pattern set ships embedded so the approve hook works with no
// configuration on disk.
package embedded

import _ "embed"

// PatternsYAML contains the default auto-approve pattern set.
//
//go:embed patterns.yaml
var PatternsYAML []byte

// Package rules embeds the static data tables the panels match and render:
// technology fingerprints, security header checks, attack payloads, dork
// templates and reverse shell one-liners.
//
// Tables are YAML so rules can be added without touching the matching code.
//
//	data, _ := rules.FS.ReadFile("tech.yaml")
package rules

import "embed"

// FS holds every bundled *.yaml table.
//
//go:embed *.yaml
var FS embed.FS

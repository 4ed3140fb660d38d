// Package templates holds the dashboard pages. Every page defines "content"
// and is rendered through the "base" layout.
package templates

import "embed"

//go:embed *.html
var FS embed.FS

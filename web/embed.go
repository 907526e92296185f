// Package web holds the embedded single-page UI.
package web

import "embed"

//go:embed index.html
var FS embed.FS

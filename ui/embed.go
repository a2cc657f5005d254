// Package ui holds the page templates and static assets served by labdesk.
package ui

import "embed"

//go:embed templates static
var FS embed.FS

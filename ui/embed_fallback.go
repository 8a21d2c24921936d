//go:build !ui_embed

// Package ui serves the PTZ control page. Without the ui_embed tag there is
// no page, and the root redirects to the API docs.
package ui

import "net/http"

// Handler redirects to /docs.
func Handler() (http.Handler, error) {
	return http.RedirectHandler("/docs", http.StatusFound), nil
}

// Package templates embeds the html/template sources of the site. In dev
// mode cmd/web reads the same files from disk so edits show up on reload.
package templates

import "embed"

//go:embed *.tmpl
var FS embed.FS

// Layout is the shared file parsed into every page set.
const Layout = "layout.tmpl"

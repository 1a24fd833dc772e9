// Package templates holds the templ components of the web UI.
//
// Edit the .templ sources and run `templ generate` to refresh the
// *_templ.go files.
package templates

//go:generate templ generate

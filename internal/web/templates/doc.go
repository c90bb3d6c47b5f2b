// Package templates holds the templ components rendered by the web server.
// Edit the .templ files and run `templ generate`; *_templ.go is generated.
package templates

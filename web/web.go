// Package web holds the calculator page templates and stylesheet.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.tmpl static/*
var files embed.FS

// Templates parses the page templates with funcs available.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.tmpl")
}

// Static is the stylesheet directory.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

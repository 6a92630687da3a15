package generate

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/CyberForgeX/titanoboa/internal/scan"
)

// Renderer serializes an ordered module list into an orchestrator artifact
// body. The ordering logic stays independent of the artifact's textual form;
// swapping the renderer changes the on-disk format, nothing else.
type Renderer interface {
	Render(snapshot scan.DirectorySnapshot) ([]byte, error)
}

// GoRenderer emits a Go source file declaring Modules(), the ordered module
// file list the invoke runner reads back when executing the directory.
type GoRenderer struct{}

var artifactTemplate = template.Must(template.New("artifact").Parse(
	`// Code generated by titanoboa; DO NOT EDIT.
//
// Orchestrator for {{.Directory}}: {{len .Files}} module(s).

package main

// Modules lists this directory's module files in execution order.
func Modules() []string {
	return []string{
{{- range .Files}}
		{{printf "%q" .}},
{{- end}}
	}
}
`))

// Render builds the artifact body for snapshot's current module set.
func (GoRenderer) Render(snapshot scan.DirectorySnapshot) ([]byte, error) {
	data := struct {
		Directory string
		Files     []string
	}{
		Directory: snapshot.Directory,
		Files:     snapshot.FileNames(),
	}
	var buf bytes.Buffer
	if err := artifactTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("generate: render %s: %w", snapshot.Directory, err)
	}
	return buf.Bytes(), nil
}

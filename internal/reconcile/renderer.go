package reconcile

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/auto-proxy/docker-nginx-sync/internal/topology"
)

// templateData is the variable set exposed to templates. Images iterates
// services in key order, so rendering the same topology twice yields
// byte-identical output.
type templateData struct {
	Images []*topology.Service
}

// TemplateRenderer renders proxy configuration through text/template.
type TemplateRenderer struct{}

func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

func (r *TemplateRenderer) Render(name string, src []byte, topo topology.Topology) ([]byte, error) {
	tmpl, err := template.New(name).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{Images: topo.Services()}); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

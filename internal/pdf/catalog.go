package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/propdesk/propdesk/report"
)

// ManifestFile is the catalog index expected next to the templates.
const ManifestFile = "manifest.yaml"

type manifest struct {
	Templates []TemplateSpec `yaml:"templates"`
}

// TemplateSpec describes one document template in the manifest.
type TemplateSpec struct {
	Name      string  `yaml:"name"`
	File      string  `yaml:"file"`
	Landscape bool    `yaml:"landscape"`
	Paper     paper   `yaml:"paper"`
	Margins   margins `yaml:"margins"`
}

type paper struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type margins struct {
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
	Right  float64 `yaml:"right"`
}

// PageOptions converts the manifest layout into Gotenberg form options.
// Missing paper dimensions fall back to A4.
func (s TemplateSpec) PageOptions() report.PageOptions {
	opts := report.A4
	if s.Paper.Width > 0 && s.Paper.Height > 0 {
		opts.PaperWidth = s.Paper.Width
		opts.PaperHeight = s.Paper.Height
	}
	opts.MarginTop = s.Margins.Top
	opts.MarginBottom = s.Margins.Bottom
	opts.MarginLeft = s.Margins.Left
	opts.MarginRight = s.Margins.Right
	opts.Landscape = s.Landscape
	return opts
}

// Document is a parsed template ready to execute.
type Document struct {
	Spec TemplateSpec
	tmpl *template.Template
}

// Render executes the template against data.
func (d *Document) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", d.Spec.Name, err)
	}
	return buf.String(), nil
}

// Catalog holds every template listed in a manifest.
type Catalog struct {
	docs map[string]*Document
}

// LoadCatalog reads dir/manifest.yaml from fsys and parses each listed template.
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, path.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("pdf: read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("pdf: parse manifest: %w", err)
	}
	catalog := &Catalog{docs: make(map[string]*Document, len(m.Templates))}
	for _, spec := range m.Templates {
		if spec.Name == "" || spec.File == "" {
			return nil, fmt.Errorf("pdf: manifest entry missing name or file")
		}
		if _, dup := catalog.docs[spec.Name]; dup {
			return nil, fmt.Errorf("pdf: duplicate template %q", spec.Name)
		}
		tmpl, err := template.New(spec.File).Funcs(funcMap()).ParseFS(fsys, path.Join(dir, spec.File))
		if err != nil {
			return nil, fmt.Errorf("pdf: parse %s: %w", spec.File, err)
		}
		catalog.docs[spec.Name] = &Document{Spec: spec, tmpl: tmpl}
	}
	return catalog, nil
}

// Lookup returns the named document.
func (c *Catalog) Lookup(name string) (*Document, bool) {
	if c == nil {
		return nil, false
	}
	doc, ok := c.docs[name]
	return doc, ok
}

// Names lists template names alphabetically.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.docs))
	for name := range c.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

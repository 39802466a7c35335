package render

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

// PageOptions carries the page-only extras of the interactive view.
type PageOptions struct {
	DocumentURL string
}

type pageData struct {
	View        View
	DocumentURL string
	Pies        []PieChart
	Lines       []LineChart
	AxisMax     float64
	AxisStep    float64
}

// HTML writes the interactive report page.
func HTML(w io.Writer, view View, opts PageOptions) error {
	data := pageData{
		View:        view,
		DocumentURL: opts.DocumentURL,
		Pies:        []PieChart{},
		Lines:       []LineChart{},
		AxisMax:     RateAxisMax,
		AxisStep:    RateAxisStep,
	}
	for _, s := range view.Sections {
		if s.Pie != nil {
			data.Pies = append(data.Pies, *s.Pie)
		}
		if s.Line != nil {
			data.Lines = append(data.Lines, *s.Line)
		}
	}
	return pageTemplate.Execute(w, data)
}

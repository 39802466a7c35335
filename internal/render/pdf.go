package render

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	apperrors "github.com/spec-kit/itop-report/pkg/util"
)

// FontHint is attached to render failures caused by the document font.
const FontHint = "install a CJK-capable TrueType font (e.g. simkai.ttf) and set REPORT_FONT_PATH"

const (
	pageMargin     = 36.0
	tableWidthPart = 0.85
	cellPadding    = 3.0
	bodyFontSize   = 10.0
	lineHeight     = 14.0
)

// PDFOptions selects the document font. An empty FontPath uses the built-in
// Helvetica, which only covers Latin-1 text.
type PDFOptions struct {
	FontPath           string
	FontFamily         string
	DisableCompression bool
}

// PDFRenderer draws a View as a letter-size document.
type PDFRenderer struct {
	opts PDFOptions
}

// NewPDFRenderer creates a renderer.
func NewPDFRenderer(opts PDFOptions) *PDFRenderer {
	if opts.FontFamily == "" {
		opts.FontFamily = "report"
	}
	return &PDFRenderer{opts: opts}
}

type document struct {
	pdf    *fpdf.Fpdf
	family string
	text   func(string) string
}

// Render returns the document bytes. Font problems come back as a render failure
// carrying FontHint.
func (r *PDFRenderer) Render(view View) ([]byte, error) {
	doc, err := r.newDocument(view.Title)
	if err != nil {
		return nil, err
	}
	doc.draw(view)

	if err := doc.pdf.Error(); err != nil {
		return nil, apperrors.NewRenderFailure("document could not be rendered", FontHint, err)
	}
	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, apperrors.NewRenderFailure("document could not be written", FontHint, err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) newDocument(title string) (*document, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(!r.opts.DisableCompression)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin+10)
	pdf.SetCreator("itop-report", true)
	pdf.SetTitle(title, true)

	doc := &document{pdf: pdf, family: "Helvetica", text: func(s string) string { return s }}
	if r.opts.FontPath != "" {
		if _, err := os.Stat(r.opts.FontPath); err != nil {
			return nil, apperrors.NewRenderFailure("document font is not available", FontHint, err)
		}
		pdf.AddUTF8Font(r.opts.FontFamily, "", r.opts.FontPath)
		pdf.AddUTF8Font(r.opts.FontFamily, "B", r.opts.FontPath)
		if err := pdf.Error(); err != nil {
			return nil, apperrors.NewRenderFailure("document font could not be loaded", FontHint, err)
		}
		doc.family = r.opts.FontFamily
	} else {
		doc.text = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont(doc.family, "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return doc, nil
}

func (d *document) draw(view View) {
	pdf := d.pdf
	pdf.AddPage()

	pdf.SetFont(d.family, "B", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 26, d.text(view.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(d.family, "", 11)
	pdf.CellFormat(0, 16, d.text(view.PeriodLabel), "", 1, "C", false, 0, "")
	pdf.Ln(8)
	d.paragraph(view.Headline)

	for _, s := range view.Sections {
		d.section(s)
	}
}

func (d *document) section(s Section) {
	pdf := d.pdf
	size := 14.0
	if s.Level > 1 {
		size = 12
	}
	d.ensureSpace(size + 3*lineHeight)
	pdf.Ln(6)
	pdf.SetFont(d.family, "B", size)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, size+6, d.text(s.Heading), "", 1, "L", false, 0, "")

	for _, p := range s.Paragraphs {
		d.paragraph(p)
	}
	if s.Pie != nil {
		d.pie(*s.Pie)
	}
	if s.Table != nil && len(s.Table.Rows) > 0 {
		d.table(*s.Table)
	}
	if s.Notice != "" {
		pdf.SetFont(d.family, "", bodyFontSize)
		pdf.SetTextColor(170, 51, 51)
		pdf.MultiCell(0, lineHeight, d.text(s.Notice), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	if s.Line != nil {
		d.line(*s.Line)
	}
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont(d.family, "", bodyFontSize)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(0, lineHeight, d.text(text), "", "L", false)
}

// ensureSpace starts a new page when h points do not fit above the bottom margin.
func (d *document) ensureSpace(h float64) {
	_, pageH := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	if d.pdf.GetY()+h > pageH-bottom {
		d.pdf.AddPage()
	}
}

func (d *document) table(t Table) {
	pdf := d.pdf
	pageW, _ := pdf.GetPageSize()
	width := pageW * tableWidthPart
	left := (pageW - width) / 2
	colW := width / float64(len(t.Columns))
	fontSize := 8.0
	if len(t.Columns) > 10 {
		fontSize = 6
	}
	rowLine := fontSize + 2

	header := func() {
		pdf.SetFont(d.family, "B", fontSize)
		d.row(left, colW, rowLine, t.Columns, [3]int{128, 128, 128}, [3]int{245, 245, 245})
	}
	pdf.Ln(4)
	d.ensureSpace(2 * (rowLine + 2*cellPadding))
	header()
	pdf.SetFont(d.family, "", fontSize)
	for _, r := range t.Rows {
		if d.rowHeight(colW, rowLine, r) > d.remaining() {
			pdf.AddPage()
			header()
			pdf.SetFont(d.family, "", fontSize)
		}
		d.row(left, colW, rowLine, r, [3]int{245, 245, 220}, [3]int{0, 0, 0})
	}
	pdf.SetX(pageMargin)
	pdf.Ln(6)
}

func (d *document) remaining() float64 {
	_, pageH := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	return pageH - bottom - d.pdf.GetY()
}

func (d *document) rowHeight(colW, rowLine float64, cells []string) float64 {
	lines := 1
	for _, c := range cells {
		if n := len(d.wrap(c, colW-2*cellPadding)); n > lines {
			lines = n
		}
	}
	return float64(lines)*rowLine + 2*cellPadding
}

// row draws one table row with every cell wrapped inside its column.
func (d *document) row(left, colW, rowLine float64, cells []string, fill, color [3]int) {
	pdf := d.pdf
	h := d.rowHeight(colW, rowLine, cells)
	y := pdf.GetY()
	pdf.SetFillColor(fill[0], fill[1], fill[2])
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.SetTextColor(color[0], color[1], color[2])
	for i, c := range cells {
		x := left + float64(i)*colW
		pdf.Rect(x, y, colW, h, "FD")
		for j, l := range d.wrap(c, colW-2*cellPadding) {
			pdf.SetXY(x+cellPadding, y+cellPadding+float64(j)*rowLine)
			pdf.CellFormat(colW-2*cellPadding, rowLine, d.text(l), "", 0, "C", false, 0, "")
		}
	}
	pdf.SetXY(left, y+h)
}

// wrap breaks text on spaces, splitting single words that are wider than w.
func (d *document) wrap(text string, w float64) []string {
	width := func(s string) float64 { return d.pdf.GetStringWidth(d.text(s)) }
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if width(candidate) <= w {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		for width(word) > w {
			cut := 1
			runes := []rune(word)
			for cut < len(runes) && width(string(runes[:cut+1])) <= w {
				cut++
			}
			lines = append(lines, string(runes[:cut]))
			word = string(runes[cut:])
		}
		current = word
	}
	if current != "" || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}

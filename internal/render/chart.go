package render

import (
	"math"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	pieRadius   = 70.0
	chartHeight = 180.0
	legendBox   = 8.0
)

func hexRGB(hex string) (int, int, int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

// pie draws the chart with its legend on the right. Slices are polygons
// approximating the arc, starting at twelve o'clock and running clockwise.
func (d *document) pie(chart PieChart) {
	total := chart.Total()
	if total == 0 {
		return
	}
	pdf := d.pdf
	d.ensureSpace(2*pieRadius + 40)
	pageW, _ := pdf.GetPageSize()

	pdf.SetFont(d.family, "B", bodyFontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetX(pageMargin)
	pdf.CellFormat(0, lineHeight, d.text(chart.Title), "", 1, "C", false, 0, "")

	top := pdf.GetY() + 6
	cx := pageW/2 - 60
	cy := top + pieRadius
	start := -math.Pi / 2
	pdf.SetDrawColor(255, 255, 255)
	pdf.SetLineWidth(1)
	for _, s := range chart.Slices {
		if s.Value == 0 {
			continue
		}
		sweep := 2 * math.Pi * float64(s.Value) / float64(total)
		r, g, b := hexRGB(s.Color)
		pdf.SetFillColor(r, g, b)
		if s.Value == total {
			pdf.Circle(cx, cy, pieRadius, "F")
		} else {
			pdf.Polygon(slicePoints(cx, cy, pieRadius, start, sweep), "FD")
		}
		start += sweep
	}

	pdf.SetFont(d.family, "", 9)
	lx := cx + pieRadius + 30
	ly := cy - float64(len(chart.Slices))*lineHeight/2
	for i, s := range chart.Slices {
		y := ly + float64(i)*lineHeight
		r, g, b := hexRGB(s.Color)
		pdf.SetFillColor(r, g, b)
		pdf.SetDrawColor(120, 120, 120)
		pdf.Rect(lx, y+3, legendBox, legendBox, "FD")
		label := s.Label + ": " + strconv.Itoa(s.Value) + " (" + sliceShare(s.Value, total) + ")"
		pdf.SetXY(lx+legendBox+4, y)
		pdf.CellFormat(140, lineHeight, d.text(label), "", 0, "L", false, 0, "")
	}
	pdf.SetXY(pageMargin, cy+pieRadius+10)
}

func slicePoints(cx, cy, r, start, sweep float64) []fpdf.PointType {
	steps := int(math.Ceil(sweep / (math.Pi / 90)))
	if steps < 1 {
		steps = 1
	}
	points := []fpdf.PointType{{X: cx, Y: cy}}
	for i := 0; i <= steps; i++ {
		a := start + sweep*float64(i)/float64(steps)
		points = append(points, fpdf.PointType{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)})
	}
	return points
}

func sliceShare(v, total int) string {
	return strconv.FormatFloat(math.Round(float64(v)*10000/float64(total))/100, 'f', 2, 64) + "%"
}

// line draws a rate trend on a 0..RateAxisMax axis with a label on every point.
func (d *document) line(chart LineChart) {
	if len(chart.Categories) == 0 || len(chart.Series) == 0 {
		return
	}
	pdf := d.pdf
	d.ensureSpace(chartHeight + 70 + float64(len(chart.Series))*lineHeight)
	pageW, _ := pdf.GetPageSize()

	pdf.SetFont(d.family, "B", bodyFontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetX(pageMargin)
	pdf.CellFormat(0, lineHeight, d.text(chart.Title), "", 1, "C", false, 0, "")

	width := pageW * tableWidthPart
	left := (pageW-width)/2 + 30
	plotW := width - 40
	top := pdf.GetY() + 10
	bottom := top + chartHeight
	yOf := func(v float64) float64 { return bottom - v/RateAxisMax*chartHeight }

	pdf.SetFont(d.family, "", 7)
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetLineWidth(0.3)
	pdf.SetTextColor(80, 80, 80)
	for v := 0.0; v <= 100; v += RateAxisStep {
		y := yOf(v)
		pdf.Line(left, y, left+plotW, y)
		pdf.SetXY(left-28, y-4)
		pdf.CellFormat(24, 8, strconv.Itoa(int(v)), "", 0, "R", false, 0, "")
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(left, top, left, bottom)
	pdf.Line(left, bottom, left+plotW, bottom)

	step := plotW / float64(len(chart.Categories))
	xOf := func(i int) float64 { return left + step*(float64(i)+0.5) }
	for i, c := range chart.Categories {
		pdf.SetXY(xOf(i)-step/2, bottom+3)
		pdf.CellFormat(step, 9, d.text(c), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(left, bottom+13)
	pdf.CellFormat(plotW, 9, d.text(chart.XLabel), "", 0, "C", false, 0, "")
	pdf.TransformBegin()
	pdf.TransformRotate(90, left-34, top+chartHeight/2)
	pdf.Text(left-34-pdf.GetStringWidth(d.text(chart.YLabel))/2, top+chartHeight/2, d.text(chart.YLabel))
	pdf.TransformEnd()

	for _, s := range chart.Series {
		r, g, b := hexRGB(s.Color)
		pdf.SetDrawColor(r, g, b)
		pdf.SetFillColor(r, g, b)
		pdf.SetTextColor(r, g, b)
		pdf.SetLineWidth(1.2)
		var prevX, prevY float64
		havePrev := false
		for i, v := range s.Values {
			if v == nil {
				continue
			}
			x, y := xOf(i), yOf(*v)
			if havePrev {
				pdf.Line(prevX, prevY, x, y)
			}
			pdf.Circle(x, y, 2, "F")
			if i < len(s.Labels) && s.Labels[i] != "" {
				pdf.SetXY(x-25, y-11)
				pdf.CellFormat(50, 8, d.text(s.Labels[i]), "", 0, "C", false, 0, "")
			}
			prevX, prevY, havePrev = x, y, true
		}
	}

	ly := bottom + 26
	for i, s := range chart.Series {
		r, g, b := hexRGB(s.Color)
		pdf.SetFillColor(r, g, b)
		pdf.Rect(left, ly+float64(i)*lineHeight+3, legendBox, legendBox, "F")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(left+legendBox+4, ly+float64(i)*lineHeight)
		pdf.CellFormat(200, lineHeight, d.text(s.Name), "", 0, "L", false, 0, "")
	}
	pdf.SetLineWidth(0.5)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(pageMargin, ly+float64(len(chart.Series))*lineHeight+6)
}

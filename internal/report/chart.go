package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-pdf/fpdf"

	"rangescope/pkg/model"
)

// ChartFile is the chart report written by WriteChart
const ChartFile = "best_source_report.pdf"

// Chart area on a landscape A4 page, in mm
const (
	chartLeft   = 30.0
	chartTop    = 30.0
	chartWidth  = 230.0
	chartHeight = 120.0
)

// WriteChart renders the summary chart into dir and returns its path
func WriteChart(dir string, result *model.RunResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, ChartFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := RenderChart(f, result); err != nil {
		return "", err
	}
	return path, f.Close()
}

// RenderChart draws win counts as bars with the within-range percentage as a
// line on a secondary axis, followed by a page with the summary table
func RenderChart(w io.Writer, result *model.RunResult) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Best Source Count and %WithinRange", true)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Best Source Count and %WithinRange", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Run %s - %d dates, %d sources", result.RunID, len(result.Best), len(result.Sources)), "", 1, "C", false, 0, "")

	drawBars(pdf, result.Summaries)

	pdf.AddPage()
	drawSummaryTable(pdf, result.Summaries)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

func drawBars(pdf *fpdf.Fpdf, summaries []model.SourceSummary) {
	maxWins := 1
	for _, s := range summaries {
		if s.WinCount > maxWins {
			maxWins = s.WinCount
		}
	}
	yMax := niceCeil(float64(maxWins))
	bottom := chartTop + chartHeight

	// Axes and gridlines
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.SetFont("Helvetica", "", 7)
	for i := 0; i <= 5; i++ {
		y := bottom - chartHeight*float64(i)/5
		pdf.Line(chartLeft, y, chartLeft+chartWidth, y)

		pdf.SetTextColor(31, 119, 180)
		label := strconv.FormatFloat(yMax*float64(i)/5, 'f', 0, 64)
		pdf.Text(chartLeft-3-pdf.GetStringWidth(label), y+1, label)

		pdf.SetTextColor(255, 127, 14)
		pdf.Text(chartLeft+chartWidth+2, y+1, fmt.Sprintf("%d%%", i*20))
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Line(chartLeft, chartTop, chartLeft, bottom)
	pdf.Line(chartLeft, bottom, chartLeft+chartWidth, bottom)
	pdf.Line(chartLeft+chartWidth, chartTop, chartLeft+chartWidth, bottom)

	if len(summaries) == 0 {
		return
	}

	slot := chartWidth / float64(len(summaries))
	barWidth := slot * 0.6
	var prevX, prevY float64

	for i, s := range summaries {
		center := chartLeft + slot*(float64(i)+0.5)

		h := chartHeight * float64(s.WinCount) / yMax
		pdf.SetFillColor(31, 119, 180)
		pdf.Rect(center-barWidth/2, bottom-h, barWidth, h, "F")

		// Secondary axis: within-range percentage of the source's predictions
		py := bottom - chartHeight*s.WithinRangePercentage/100
		pdf.SetDrawColor(255, 127, 14)
		pdf.SetFillColor(255, 127, 14)
		pdf.SetLineWidth(0.5)
		if i > 0 {
			pdf.Line(prevX, prevY, center, py)
		}
		pdf.Circle(center, py, 0.9, "F")
		prevX, prevY = center, py

		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 7)
		pdf.TransformBegin()
		pdf.TransformRotate(45, center, bottom+4)
		pdf.Text(center-pdf.GetStringWidth(s.SourceID), bottom+4, s.SourceID)
		pdf.TransformEnd()
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 8)
	pdf.TransformBegin()
	pdf.TransformRotate(90, chartLeft-14, bottom-chartHeight/2)
	pdf.Text(chartLeft-14-25, bottom-chartHeight/2, "Best count (days chosen as best)")
	pdf.TransformEnd()
	pdf.TransformBegin()
	pdf.TransformRotate(90, chartLeft+chartWidth+12, bottom-chartHeight/2)
	pdf.Text(chartLeft+chartWidth+12-20, bottom-chartHeight/2, "Within range % (all predictions)")
	pdf.TransformEnd()
}

func drawSummaryTable(pdf *fpdf.Fpdf, summaries []model.SourceSummary) {
	headers := []string{"Source", "Days", "Wins", "Win %", "Within", "Within %", "Avg Distance"}
	widths := []float64{60, 25, 25, 25, 25, 25, 35}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 10, "Source Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, s := range summaries {
		cells := []string{
			s.SourceID,
			strconv.Itoa(s.Comparisons),
			strconv.Itoa(s.WinCount),
			fixed2(s.WinPercentage),
			strconv.Itoa(s.WithinRangeCount),
			fixed2(s.WithinRangePercentage),
			fixed2(s.AverageDistance),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// niceCeil rounds up to 1, 2 or 5 times a power of ten
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

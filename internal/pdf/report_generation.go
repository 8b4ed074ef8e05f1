package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders the full evaluation report for a paid task.
type Generator interface {
	GenerateEvaluationReport(data ReportData) ([]byte, error)
}

type ReportData struct {
	TaskID       string
	Title        string
	Score        int
	Strengths    []string
	Improvements []string
	CreatedAt    time.Time
}

type ReportGenerator struct{}

func NewReportGenerator() *ReportGenerator { return &ReportGenerator{} }

func (g *ReportGenerator) GenerateEvaluationReport(data ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Evaluation Report - %s", data.Title), true)
	pdf.SetAuthor("TaskEval", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "AI EVALUATION REPORT", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	sub := fmt.Sprintf("Task %s  -  %s", data.TaskID, data.CreatedAt.Format("02.01.2006"))
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	hr(pdf)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, data.Title, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 12, fmt.Sprintf("Score: %d / 10", data.Score), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeList(pdf, "Strengths", data.Strengths)
	writeList(pdf, "Areas for Improvement", data.Improvements)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeList(pdf *gofpdf.Fpdf, heading string, items []string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, item := range items {
		pdf.MultiCell(0, 6, "- "+item, "", "L", false)
		pdf.Ln(1)
	}
	pdf.Ln(4)
}

func hr(pdf *gofpdf.Fpdf) {
	pdf.Ln(2)
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(x, y, 190, y)
	pdf.Ln(4)
}

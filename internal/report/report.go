// Package report renders a diagnosis record as a downloadable PDF.
package report

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/diagnosis"
)

const (
	FileName    = "ChestXray_Report.pdf"
	ContentType = "application/pdf"

	title      = "Chest X-ray Analysis Report"
	disclaimer = "This report is generated by an AI system and is not a medical diagnosis. Please consult a qualified doctor."
	imageWidth = 80.0
)

type Renderer struct {
	now func() time.Time
}

func NewRenderer(now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{now: now}
}

// Render lays out one A4 report. The record's date and time are restamped
// at render time; images that are not valid PNG are left out.
func (r *Renderer) Render(p diagnosis.Patient, rec diagnosis.Record) ([]byte, error) {
	rec.Stamp(r.now())

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s   Time: %s", rec.DateStr, rec.TimeStr), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Patient Details")
	pdf.SetFillColor(240, 240, 240)
	for _, row := range [][2]string{
		{"Name", p.Name},
		{"Age", p.Age},
		{"Gender", p.Gender},
		{"Phone", p.Phone},
	} {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section(pdf, "Prediction")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr("Disease: "+rec.Disease), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Confidence: %.2f%%", rec.Confidence), "", 1, "L", false, 0, "")
	if rec.ConfidenceWarning != "" {
		pdf.SetTextColor(200, 40, 40)
		pdf.MultiCell(0, 6, tr(rec.ConfidenceWarning), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	images(pdf, rec)

	if rec.AIResponse != "" {
		section(pdf, "AI Medical Summary")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(rec.AIResponse), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, disclaimer, "T", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, name string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(20, 60, 120)
	pdf.CellFormat(0, 8, name, "B", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
}

func images(pdf *fpdf.Fpdf, rec diagnosis.Record) {
	type figure struct {
		name, caption string
		data          []byte
	}
	var figs []figure
	for _, f := range []figure{
		{"input", "Input X-ray", rec.InputImage},
		{"gradcam", "Grad-CAM", rec.GradCAMImage},
	} {
		if validPNG(f.data) {
			figs = append(figs, f)
		}
	}
	if len(figs) == 0 {
		return
	}

	section(pdf, "Images")
	left, _, _, _ := pdf.GetMargins()
	y := pdf.GetY()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, f := range figs {
		x := left + float64(i)*(imageWidth+10)
		pdf.RegisterImageOptionsReader(f.name, opts, bytes.NewReader(f.data))
		pdf.ImageOptions(f.name, x, y, imageWidth, imageWidth, false, opts, 0, "")
		pdf.SetXY(x, y+imageWidth+1)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(imageWidth, 5, f.caption, "", 0, "C", false, 0, "")
	}
	pdf.SetXY(left, y+imageWidth+8)
}

func validPNG(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	_, err := png.DecodeConfig(bytes.NewReader(b))
	return err == nil
}

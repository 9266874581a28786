package printing

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/dapurpintar/dpmbggo/internal/codes"
)

// SheetConfig holds configuration for a printable A4 sheet of QR labels,
// used to produce fresh tray or ingredient codes for registration.
type SheetConfig struct {
	Type       string  `json:"type"` // "tray" (default) or "item"
	Count      int     `json:"count"`
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`

	CountdownBaseURL string `json:"-"`
}

func (cfg *SheetConfig) applyDefaults() {
	if cfg.Cols == 0 {
		cfg.Cols = 3
	}
	if cfg.Rows == 0 {
		cfg.Rows = 7
	}
	if cfg.Count == 0 {
		cfg.Count = cfg.Cols * cfg.Rows
	}
	if cfg.Type == "" {
		cfg.Type = "tray"
	}
}

// GenerateSheetPDF creates a PDF of freshly minted QR labels and returns the
// PDF bytes together with the codes it minted, so the caller can register
// them before the sheet leaves the printer.
func GenerateSheetPDF(cfg SheetConfig) ([]byte, []string, error) {
	cfg.applyDefaults()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	// A4 dimensions
	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY
	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)
	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows
	minted := make([]string, 0, cfg.Count)

	for i := 0; i < cfg.Count; i++ {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		var code, qrContent string
		if cfg.Type == "item" {
			code = codes.NewItemCode()
			qrContent = qrLinkForItem(code)
		} else {
			code = codes.NewTrayCode()
			qrContent = fmt.Sprintf("%s/?tray_id=%s", cfg.CountdownBaseURL, code)
		}
		minted = append(minted, code)

		qrPng, err := qrcode.Encode(qrContent, qrcode.Low, 256)
		if err != nil {
			return nil, nil, err
		}

		imgName := fmt.Sprintf("qr_%d", i)
		imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		reader := bytes.NewReader(qrPng)
		_ = pdf.RegisterImageOptionsReader(imgName, imgOptions, reader)

		// QR centered in the label, 70% of its height.
		qrSize := labelH * 0.7
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}
		qrX := x + (labelW-qrSize)/2
		qrY := y + (labelH-qrSize)/2 - 2

		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, imgOptions, 0, "")

		// Human-readable code below the QR.
		pdf.SetXY(x, y+labelH-6)
		pdf.SetFontSize(8)
		pdf.CellFormat(labelW, 5, code, "", 0, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, nil, err
	}

	return buf.Bytes(), minted, nil
}

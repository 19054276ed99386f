// Package certificate renders the printable proof of a verified document QR code.
package certificate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/qr"
)

// Input is what a certificate shows.
type Input struct {
	School     string
	Record     qr.VerifiedRecord
	Token      string
	VerifyURL  string
	VerifiedAt time.Time
}

// Render produces an A4 PDF. The QR image encodes VerifyURL when set.
func Render(in Input) ([]byte, error) {
	if in.School == "" {
		in.School = "Office of the Registrar"
	}
	if in.VerifiedAt.IsZero() {
		in.VerifiedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, in.School, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Document Verification Certificate", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	rows := [][2]string{
		{"Name", in.Record.FullName()},
		{"LRN", in.Record.LRN},
		{"Grade / Year", in.Record.GradeYear},
		{"Document", in.Record.DocumentType},
		{"Purpose", in.Record.Purpose},
		{"Copies", fmt.Sprintf("%d", in.Record.Copies)},
		{"Scheduled pickup", in.Record.ScheduledDate},
		{"Verified at", in.VerifiedAt.Format("January 2, 2006 15:04 MST")},
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, r := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 8, r[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, tr(r[1]), "1", 1, "L", false, 0, "")
	}

	if in.VerifyURL != "" {
		png, err := qr.PNG(in.VerifyURL, 256)
		if err != nil {
			return nil, fmt.Errorf("certificate qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("verify", opts, bytes.NewReader(png))
		pdf.ImageOptions("verify", 80, 150, 50, 50, false, opts, 0, "")
		pdf.SetXY(20, 203)
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, in.VerifyURL, "", 1, "C", false, 0, "")
	}
	if in.Token != "" {
		pdf.SetXY(20, 270)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, "Reference "+in.Token, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

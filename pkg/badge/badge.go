package badge

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Document carries everything printed on a single-page attendance credential.
// The QR image is pre-rendered so this package stays a pure layout transform.
type Document struct {
	EventTitle    string
	EventLocation string
	StartsAt      time.Time
	EndsAt        time.Time

	HolderName string

	OrganizerName  string
	OrganizerEmail string
	OrganizerPhone string

	QRPNG []byte
}

// Render composes the credential into one-page PDF bytes.
// Output is deterministic for identical input: the creation date is pinned so
// two renders of the same registration are byte-identical.
func Render(doc Document) ([]byte, error) {
	if doc.EventTitle == "" {
		return nil, fmt.Errorf("badge requires an event title")
	}
	if doc.HolderName == "" {
		return nil, fmt.Errorf("badge requires a holder name")
	}
	if len(doc.QRPNG) == 0 {
		return nil, fmt.Errorf("badge requires a qr image")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 9, doc.EventTitle, "", "C", false)
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 11)
	if !doc.StartsAt.IsZero() {
		schedule := doc.StartsAt.Format("Monday, 2 January 2006 15:04")
		if !doc.EndsAt.IsZero() {
			schedule += " - " + doc.EndsAt.Format("15:04")
		}
		pdf.CellFormat(0, 6, schedule, "", 1, "C", false, 0, "")
	}
	if doc.EventLocation != "" {
		pdf.CellFormat(0, 6, doc.EventLocation, "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, doc.HolderName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, "Attendance Credential", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("credential-qr", opts, bytes.NewReader(doc.QRPNG))
	pageWidth, _ := pdf.GetPageSize()
	const qrEdge = 60.0
	pdf.ImageOptions("credential-qr", (pageWidth-qrEdge)/2, pdf.GetY(), qrEdge, qrEdge, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + qrEdge + 6)

	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 4, "Present this code at the check-in desk.", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	contact := doc.OrganizerName
	if doc.OrganizerEmail != "" {
		contact += "  |  " + doc.OrganizerEmail
	}
	if doc.OrganizerPhone != "" {
		contact += "  |  " + doc.OrganizerPhone
	}
	if contact != "" {
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 4, contact, "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render badge: %w", err)
	}
	return buf.Bytes(), nil
}

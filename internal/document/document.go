// Package document renders the printable ticket PDF for a booking.
package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ticket"
	"github.com/go-pdf/fpdf"
)

const (
	margin   = 15.0
	qrWidth  = 60.0
	brand    = "GourmetGo"
	dateForm = "Mon 02 Jan 2006, 15:04 MST"
)

var accent = [3]int{10, 126, 164}

// Summary is everything the renderer needs to lay out a booking's tickets.
type Summary struct {
	BookingCode     string
	AttendeeName    string
	ExperienceTitle string
	Date            time.Time
	People          int
	PaymentMethod   model.PaymentMethod
	Credentials     []model.Credential
}

// SummaryOf builds a Summary from a booking and its experience.
func SummaryOf(b *model.Booking, e *model.Experience) Summary {
	return Summary{
		BookingCode:     b.Code,
		AttendeeName:    b.Name,
		ExperienceTitle: e.Title,
		Date:            e.Date,
		People:          b.People,
		PaymentMethod:   b.PaymentMethod,
		Credentials:     b.Credentials,
	}
}

// Artifact is a rendered ticket document.
type Artifact struct {
	Filename string
	Pages    int
	Data     []byte
}

// Renderer produces ticket PDFs.
type Renderer struct {
	now func() time.Time
}

// NewRenderer constructs a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// Render lays out a cover page followed by one page per seat credential.
func (r *Renderer) Render(s Summary) (*Artifact, error) {
	if len(s.Credentials) == 0 {
		return nil, fmt.Errorf("booking %s has no seat credentials", s.BookingCode)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle("Booking "+s.BookingCode, true)
	pdf.SetAuthor(brand, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	year := r.now().Year()

	r.cover(pdf, tr, s)
	r.footer(pdf, year)

	for _, c := range s.Credentials {
		png, err := ticket.DecodeImage(c)
		if err != nil {
			return nil, err
		}
		r.seat(pdf, tr, s, c, png)
		r.footer(pdf, year)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return &Artifact{
		Filename: fmt.Sprintf("booking-%s.pdf", s.BookingCode),
		Pages:    pdf.PageNo(),
		Data:     buf.Bytes(),
	}, nil
}

func (r *Renderer) cover(pdf *fpdf.Fpdf, tr func(string) string, s Summary) {
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(accent[0], accent[1], accent[2])
	pdf.CellFormat(0, 12, tr("Booking Confirmation"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetDrawColor(accent[0], accent[1], accent[2])
	pdf.SetLineWidth(0.7)
	y := pdf.GetY()
	pdf.Line(margin, y, pageW-margin, y)
	pdf.Ln(6)

	rows := [][2]string{
		{"Booking code", s.BookingCode},
		{"Name", s.AttendeeName},
		{"Experience", s.ExperienceTitle},
		{"Date", s.Date.Format(dateForm)},
		{"People", fmt.Sprint(s.People)},
		{"Payment method", s.PaymentMethod.Label()},
	}
	pdf.SetTextColor(34, 34, 34)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "", 13)
		pdf.CellFormat(45, 8, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(accent[0], accent[1], accent[2])
	pdf.MultiCell(0, 6, tr("Present the QR code on the following pages for each attendee when entering the event."), "", "C", false)
}

func (r *Renderer) seat(pdf *fpdf.Fpdf, tr func(string) string, s Summary, c model.Credential, png []byte) {
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(accent[0], accent[1], accent[2])
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Ticket #%d of %d", c.Seat, len(s.Credentials))), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(34, 34, 34)
	pdf.CellFormat(0, 7, tr(s.AttendeeName), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, tr(s.ExperienceTitle), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, tr(s.Date.Format(dateForm)), "", 1, "C", false, 0, "")

	name := "seat-" + c.Payload
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	x := (pageW - qrWidth) / 2
	y := (pageH - qrWidth) / 2
	pdf.ImageOptions(name, x, y, qrWidth, qrWidth, false, opts, 0, "")

	pdf.SetXY(margin, y+qrWidth+4)
	pdf.SetFont("Courier", "B", 12)
	pdf.CellFormat(0, 7, c.Payload, "", 1, "C", false, 0, "")
}

func (r *Renderer) footer(pdf *fpdf.Fpdf, year int) {
	_, pageH := pdf.GetPageSize()
	pdf.SetXY(margin, pageH-margin-5)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(136, 136, 136)
	pdf.CellFormat(0, 5, fmt.Sprintf("%s (c) %d", brand, year), "", 0, "C", false, 0, "")
}

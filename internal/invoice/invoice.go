// Package invoice renders booking invoices as A4 PDF documents.
package invoice

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"caribook/internal/core"
)

// NumberPrefix precedes every invoice number.
const NumberPrefix = "MRBHC-"

// Studio details printed on every invoice.
const (
	StudioName    = "Mr_Bhanu_Creates"
	StudioTagline = "Live Caricature Artist"
	StudioContact = "For any queries, contact us at 6309703691 or mrbhanucaricatures@gmail.com"
)

// Data is the invoice packet built from one event.
type Data struct {
	InvoiceNumber  string   `json:"invoiceNumber"`
	Date           string   `json:"date"`
	ClientName     string   `json:"clientName"`
	Location       string   `json:"location"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	Price          float64  `json:"price"`
	AdvancePayment float64  `json:"advancePayment"`
	Artists        []string `json:"artists,omitempty"`
	ContactNumber  string   `json:"contactNumber,omitempty"`
}

// Reference is the printed invoice number.
func (d Data) Reference() string { return NumberPrefix + d.InvoiceNumber }

// FileName is the download name of the PDF.
func (d Data) FileName() string { return fmt.Sprintf("Invoice-%s.pdf", d.Reference()) }

// BalanceDue is price minus advance.
func (d Data) BalanceDue() float64 { return d.Price - d.AdvancePayment }

// ServiceLine describes the booked session.
func (d Data) ServiceLine() string {
	if len(d.Artists) > 0 {
		return fmt.Sprintf("Live caricature session (%d artists)", len(d.Artists))
	}
	return "Live caricature session"
}

var (
	brandBlue = color.Color{Red: 0, Green: 102, Blue: 204}
	grey      = color.Color{Red: 128, Green: 128, Blue: 128}
	red       = color.Color{Red: 255, Green: 0, Blue: 0}
	panel     = color.Color{Red: 250, Green: 250, Blue: 250}
)

// Render lays out d and returns the PDF bytes.
func Render(d Data) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 15, 20)

	m.Line(1, props.Line{Color: brandBlue, Width: 0.5})

	m.Row(12, func() {
		m.Col(12, func() {
			m.Text(StudioName, props.Text{Top: 2, Size: 24, Style: consts.Bold, Color: brandBlue})
		})
	})
	m.Row(8, func() {
		m.Col(12, func() {
			m.Text(StudioTagline, props.Text{Size: 12, Color: grey})
		})
	})

	m.Row(16, func() {
		m.Col(12, func() {
			m.Text("INVOICE", props.Text{Top: 8, Size: 16, Style: consts.Bold})
		})
	})

	m.SetBackgroundColor(panel)
	m.Row(8, func() {
		m.Col(12, func() {
			m.Text("Invoice Number: "+d.Reference(), props.Text{Top: 2, Left: 5, Size: 11})
		})
	})
	m.Row(8, func() {
		m.Col(12, func() {
			m.Text("Date: "+d.Date, props.Text{Top: 1, Left: 5, Size: 11})
		})
	})
	m.SetBackgroundColor(color.NewWhite())

	m.Row(10, func() {
		m.Col(12, func() {
			m.Text("To:", props.Text{Top: 4, Size: 11})
		})
	})
	lines := []string{}
	if d.ContactNumber != "" {
		lines = append(lines, "Phone: "+d.ContactNumber)
	}
	lines = append(lines,
		d.Location,
		"Event Date: "+d.Date,
		fmt.Sprintf("Time: %s to %s", d.StartTime, d.EndTime),
	)
	m.Row(7, func() {
		m.Col(12, func() {
			m.Text(d.ClientName, props.Text{Size: 11, Style: consts.Bold})
		})
	})
	for _, line := range lines {
		m.Row(7, func() {
			m.Col(12, func() {
				m.Text(line, props.Text{Size: 11})
			})
		})
	}

	m.Row(6, func() {})
	m.SetBackgroundColor(panel)
	m.Row(9, func() {
		m.Col(12, func() {
			m.Text("Service Details:", props.Text{Top: 2, Left: 5, Size: 11, Style: consts.Bold})
		})
	})
	m.Row(9, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("%s: %s", d.ServiceLine(), amount(d.Price)), props.Text{Top: 1, Left: 5, Size: 11})
		})
	})
	m.SetBackgroundColor(color.NewWhite())

	m.Row(6, func() {})
	m.SetBackgroundColor(panel)
	m.Row(9, func() {
		m.Col(12, func() {
			m.Text("Payment Details:", props.Text{Top: 2, Left: 5, Size: 11, Style: consts.Bold})
		})
	})
	m.TableList(
		[]string{"Total Amount", "Advance Paid", "Balance Due"},
		[][]string{{amount(d.Price), amount(d.AdvancePayment), amount(d.BalanceDue())}},
		props.TableList{
			HeaderProp:         props.TableListContent{Size: 10, GridSizes: []uint{4, 4, 4}},
			ContentProp:        props.TableListContent{Size: 11, GridSizes: []uint{4, 4, 4}},
			Align:              consts.Left,
			HeaderContentSpace: 1,
		},
	)
	m.SetBackgroundColor(color.NewWhite())
	m.Row(8, func() {
		m.Col(12, func() {
			m.Text("Balance Due: "+amount(d.BalanceDue()), props.Text{Top: 2, Size: 11, Color: red})
		})
	})

	m.Row(20, func() {})
	m.Row(6, func() {
		m.Col(12, func() {
			m.Text("Thank you for choosing "+StudioName+"!", props.Text{Size: 10, Color: grey, Align: consts.Center})
		})
	})
	m.Row(6, func() {
		m.Col(12, func() {
			m.Text(StudioContact, props.Text{Size: 10, Color: grey, Align: consts.Center})
		})
	})
	m.Line(1, props.Line{Color: brandBlue, Width: 0.5})

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", d.Reference(), err)
	}
	return buf.Bytes(), nil
}

// amount prints INR with Indian digit grouping. The PDF core fonts have no
// rupee glyph, so the currency code is spelled out.
func amount(v float64) string {
	return strings.Replace(core.FormatINR(v), "₹", "INR ", 1)
}

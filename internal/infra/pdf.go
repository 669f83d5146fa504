package infra

// pdf.go: Invoice PDF rendering using go-pdf/fpdf.
// Generates an A4 invoice with:
//   - Issuer block, invoice data and customer address
//   - Line table (Pos, Beschreibung, Menge, Netto, Steuersatz, Betrag)
//   - Tax breakdown and totals from the tax engine
//   - Payment instruction footer with optional EPC QR code
//   - Embedded EN 16931 XML and PDF/A-3 metadata (pdfcpu, see pdfa.go)

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"invoicetool/internal/model"
	"invoicetool/internal/tax"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pdfCreator  = "Invoice Tool"
	pdfSubject  = "Rechnung gemäß § 14 UStG"
	pdfKeywords = "Rechnung, EN 16931, XRechnung, ZUGFeRD"
	pdfLang     = "de-DE"

	attachmentDescription = "EN 16931 Strukturdatensatz"
	epcCaption            = "EPC-QR-Code für SEPA-Überweisung"
)

// PDFOptions carries the optional inputs of RenderInvoicePDF.
type PDFOptions struct {
	// XML is embedded as an associated file when non-empty.
	XML []byte
	// XMLFilename defaults to invoice-{number}.xml.
	XMLFilename string
	// EPC adds the payment QR code to the footer.
	EPC *EPCCode
	// ICCProfile enables the sRGB output intent; nil skips it.
	ICCProfile []byte
}

// PDFDocument is a rendered PDF.
type PDFDocument struct {
	Filename string
	Content  []byte
}

// PDFFilename is the download name of the invoice PDF.
func PDFFilename(number string) string {
	return fmt.Sprintf("invoice-%s.pdf", number)
}

// RenderInvoicePDF renders inv (Issuer, Customer and Lines loaded) as an A4 PDF.
func RenderInvoicePDF(inv *model.Invoice, opts PDFOptions) (*PDFDocument, error) {
	for _, line := range inv.Lines {
		if _, err := CategoryCode(line.TaxCategory); err != nil {
			return nil, err
		}
	}
	totals := tax.Compute(inv.Lines)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		SizeStr:        "A4",
	})
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreationDate(inv.IssueDate)
	pdf.SetModificationDate(inv.IssueDate)
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 for the core fonts

	title := "Rechnung " + inv.Number
	pdf.SetLang(pdfLang)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(inv.Issuer.Name, true)
	pdf.SetSubject(pdfSubject, true)
	pdf.SetCreator(pdfCreator, true)
	pdf.SetKeywords(pdfKeywords, true)
	pdf.SetXmpMetadata(xmpPacket(title, inv.Issuer.Name, pdfSubject))

	if len(opts.XML) > 0 {
		name := opts.XMLFilename
		if name == "" {
			name = XRechnungFilename(inv.Number)
		}
		pdf.SetAttachments([]fpdf.Attachment{{
			Content:     opts.XML,
			Filename:    name,
			Description: attachmentDescription,
		}})
	}

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right
	half := contentW / 2

	// ── Issuer ───────────────────────────────────────────────────────────────
	issuer := inv.Issuer
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, tr(issuer.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range []string{
		issuer.Street,
		strings.TrimSpace(issuer.PostalCode + " " + issuer.City),
		issuer.Country,
		labelled("USt-IdNr.: ", issuer.VATID),
		labelled("Steuernummer: ", issuer.TaxNumber),
		labelled("", issuer.Email),
	} {
		if l != "" {
			pdf.CellFormat(contentW, 4.5, tr(l), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	// ── Customer (left) and invoice data (right) ─────────────────────────────
	top := pdf.GetY()
	customer := inv.Customer
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range []string{
		customer.Name,
		customer.Street,
		strings.TrimSpace(customer.PostalCode + " " + customer.City),
		customer.Country,
		labelled("USt-IdNr.: ", customer.VATID),
	} {
		if l != "" {
			pdf.CellFormat(half, 5, tr(l), "", 1, "L", false, 0, "")
		}
	}
	bottom := pdf.GetY()

	pdf.SetXY(left+half, top)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(half, 8, "Rechnung", "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, kv := range invoiceFacts(inv) {
		pdf.SetX(left + half)
		pdf.CellFormat(half, 5, tr(kv[0]+": "+kv[1]), "", 2, "R", false, 0, "")
	}
	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}
	pdf.SetXY(left, bottom+8)

	// ── Line table ───────────────────────────────────────────────────────────
	cols := []float64{contentW * 0.08, contentW * 0.40, contentW * 0.12, contentW * 0.14, contentW * 0.12, contentW * 0.14}
	header := []string{"Pos", "Beschreibung", "Menge", "Netto", "Steuersatz", "Betrag"}
	aligns := []string{"C", "L", "R", "R", "R", "R"}

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(235, 235, 235)
		for i, h := range header {
			pdf.CellFormat(cols[i], 6, h, "B", 0, aligns[i], true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	drawHeader()

	_, pageH := pdf.GetPageSize()
	_, _, _, bottomMargin := pdf.GetMargins()
	for _, line := range inv.Lines {
		if pdf.GetY()+6 > pageH-bottomMargin {
			pdf.AddPage()
			drawHeader()
		}
		desc := line.Description
		if line.ArticleNumber != nil && *line.ArticleNumber != "" {
			desc = *line.ArticleNumber + " " + desc
		}
		cells := []string{
			fmt.Sprintf("%d", line.Position),
			desc,
			line.Quantity.StringFixed(2) + " " + line.Unit,
			money(line.NetPrice, inv.Currency),
			percentString(line.TaxRate) + " %",
			money(line.Base(), inv.Currency),
		}
		for i, c := range cells {
			txt := tr(c)
			if i == 1 {
				txt = fitText(pdf, txt, cols[i]-2)
			}
			pdf.CellFormat(cols[i], 6, txt, "", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Line(left, pdf.GetY(), left+contentW, pdf.GetY())
	pdf.Ln(4)

	// ── Tax breakdown ────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, tr("Steuerübersicht"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, b := range totals.Breakdown {
		label := fmt.Sprintf("%s %s %%", categoryLabel(b.Category), percentString(b.Rate))
		pdf.CellFormat(contentW*0.5, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.25, 5, tr(money(b.Base, inv.Currency)), "", 0, "R", false, 0, "")
		pdf.CellFormat(contentW*0.25, 5, tr(money(b.Tax, inv.Currency)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// ── Totals ───────────────────────────────────────────────────────────────
	for i, kv := range [][2]string{
		{"Netto", money(totals.Net, inv.Currency)},
		{"Steuer", money(totals.Tax, inv.Currency)},
		{"Brutto", money(totals.Gross(), inv.Currency)},
	} {
		style := ""
		if i == 2 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.SetX(left + contentW*0.5)
		pdf.CellFormat(contentW*0.25, 6, kv[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.25, 6, tr(kv[1]), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	due := "zum angegebenen Termin"
	if inv.DueDate != nil {
		due = germanDate(*inv.DueDate)
	}
	writeParagraph(pdf, contentW, tr(fmt.Sprintf("Bitte überweisen Sie den Rechnungsbetrag bis %s.", due)))
	if issuer.IBAN != nil && *issuer.IBAN != "" {
		bank := "IBAN: " + *issuer.IBAN
		if issuer.BIC != nil && *issuer.BIC != "" {
			bank += "   BIC: " + *issuer.BIC
		}
		writeParagraph(pdf, contentW, tr(bank))
	}
	if terms := deref(inv.PaymentTerms); terms != "" {
		writeParagraph(pdf, contentW, tr(terms))
	}
	if note := tax.LegalNote(inv); note != "" {
		pdf.SetFont("Helvetica", "B", 9)
		writeParagraph(pdf, contentW, tr(note))
		pdf.SetFont("Helvetica", "", 9)
	}
	if notes := deref(inv.Notes); notes != "" {
		writeParagraph(pdf, contentW, tr(notes))
	}

	if opts.EPC != nil && len(opts.EPC.PNG) > 0 {
		const qrSize = 30.0
		if pdf.GetY()+qrSize+10 > pageH-bottomMargin {
			pdf.AddPage()
		}
		pdf.Ln(2)
		pdf.RegisterImageOptionsReader("epc-qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(opts.EPC.PNG))
		y := pdf.GetY()
		pdf.ImageOptions("epc-qr", left, y, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetXY(left, y+qrSize+1)
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(contentW, 4, tr(epcCaption), "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Dieses Dokument wurde elektronisch erstellt und ist ohne Unterschrift gültig."), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, tr("Archivierung gemäß GoBD erfolgt im strukturierten Datensatz."), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}

	content, err := applyPDFA(buf.Bytes(), opts.ICCProfile)
	if err != nil {
		return nil, err
	}
	return &PDFDocument{Filename: PDFFilename(inv.Number), Content: content}, nil
}

// invoiceFacts lists the label/value pairs of the invoice data block.
func invoiceFacts(inv *model.Invoice) [][2]string {
	facts := [][2]string{
		{"Rechnungsnummer", inv.Number},
		{"Rechnungsdatum", germanDate(inv.IssueDate)},
	}
	switch {
	case inv.ServicePeriodStart != nil && inv.ServicePeriodEnd != nil:
		facts = append(facts, [2]string{"Leistungszeitraum",
			germanDate(*inv.ServicePeriodStart) + " - " + germanDate(*inv.ServicePeriodEnd)})
	case inv.ServicePeriodStart != nil:
		facts = append(facts, [2]string{"Leistungsdatum", germanDate(*inv.ServicePeriodStart)})
	}
	if inv.DueDate != nil {
		facts = append(facts, [2]string{"Fällig bis", germanDate(*inv.DueDate)})
	} else {
		facts = append(facts, [2]string{"Fällig bis", "siehe Zahlungsbedingungen"})
	}
	if inv.BaseDocumentNumber != nil && *inv.BaseDocumentNumber != "" {
		facts = append(facts, [2]string{"Bezug", *inv.BaseDocumentNumber})
	}
	return facts
}

func categoryLabel(c model.TaxCategory) string {
	switch c {
	case model.TaxStandard:
		return "Regelsteuersatz"
	case model.TaxReduced:
		return "Ermäßigter Steuersatz"
	case model.TaxZero:
		return "Nullsatz"
	case model.TaxReverseCharge:
		return "Reverse Charge"
	case model.TaxEUSupply:
		return "Innergemeinschaftliche Lieferung"
	case model.TaxExport:
		return "Ausfuhrlieferung"
	}
	return string(c)
}

// money formats an amount German style: 1.234,56 EUR.
func money(v decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "EUR"
	}
	s := v.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	out := grouped.String() + "," + frac + " " + currency
	if neg {
		out = "-" + out
	}
	return out
}

func germanDate(t time.Time) string { return t.Format("02.01.2006") }

func labelled(label string, v *string) string {
	if v == nil || *v == "" {
		return ""
	}
	return label + *v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeParagraph(pdf *fpdf.Fpdf, w float64, text string) {
	pdf.MultiCell(w, 4.5, text, "", "L", false)
}

// fitText shortens s with "..." until it fits into w at the current font.
func fitText(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// xmpPacket declares PDF/A-3B conformance plus Dublin Core title, creator and description.
func xmpPacket(title, author, subject string) []byte {
	esc := html.EscapeString
	return []byte(`<?xpacket begin="` + "\ufeff" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about="" xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/">
   <pdfaid:part>3</pdfaid:part>
   <pdfaid:conformance>B</pdfaid:conformance>
  </rdf:Description>
  <rdf:Description rdf:about="" xmlns:dc="http://purl.org/dc/elements/1.1/">
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default">` + esc(title) + `</rdf:li></rdf:Alt></dc:title>
   <dc:creator><rdf:Seq><rdf:li>` + esc(author) + `</rdf:li></rdf:Seq></dc:creator>
   <dc:description><rdf:Alt><rdf:li xml:lang="x-default">` + esc(subject) + `</rdf:li></rdf:Alt></dc:description>
  </rdf:Description>
  <rdf:Description rdf:about="" xmlns:pdf="http://ns.adobe.com/pdf/1.3/">
   <pdf:Producer>` + pdfCreator + `</pdf:Producer>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"invoicetool/internal/infra"
	"invoicetool/internal/model"
	"invoicetool/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render XRechnung XML, PDF/A-3 and ZUGFeRD from a JSON invoice",
	Example: `  # All formats into ./out
  invoicectl render --input invoice.json --out out

  # PDF only, with an sRGB output intent
  invoicectl render --input invoice.json --format pdf --icc sRGB.icc`,
	RunE: runRender,
}

var renderOpts struct {
	input  string
	out    string
	format string
	icc    string
}

func init() {
	renderCmd.Flags().StringVarP(&renderOpts.input, "input", "i", "", "JSON invoice file")
	renderCmd.Flags().StringVarP(&renderOpts.out, "out", "o", ".", "Output directory")
	renderCmd.Flags().StringVarP(&renderOpts.format, "format", "f", "all", "xml | pdf | zip | all")
	renderCmd.Flags().StringVar(&renderOpts.icc, "icc", "", "ICC profile for the PDF/A output intent")
	_ = renderCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	inv, err := readInvoiceFile(renderOpts.input)
	if err != nil {
		return err
	}
	var icc []byte
	if renderOpts.icc != "" {
		if icc, err = os.ReadFile(renderOpts.icc); err != nil {
			return fmt.Errorf("icc profile: %w", err)
		}
	}
	files, err := renderInvoice(inv, renderOpts.format, icc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(renderOpts.out, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		path := filepath.Join(renderOpts.out, f.Filename)
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return err
		}
		log.Debug().Str("file", path).Int("bytes", len(f.Content)).Msg("written")
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

// renderInvoice produces the requested formats in the order xml, pdf, zip.
func renderInvoice(inv *model.Invoice, format string, icc []byte) ([]service.Document, error) {
	want := map[string]bool{}
	switch format {
	case "all":
		want["xml"], want["pdf"], want["zip"] = true, true, true
	case "xml", "pdf", "zip":
		want[format] = true
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	xmlDoc, err := infra.BuildXRechnung(inv)
	if err != nil {
		return nil, err
	}
	var out []service.Document
	if want["xml"] {
		out = append(out, service.Document{Filename: infra.XRechnungFilename(inv.Number), ContentType: service.MimeXML, Content: xmlDoc})
	}

	opts := infra.PDFOptions{XML: xmlDoc, EPC: service.PaymentCode(inv), ICCProfile: icc}
	if want["pdf"] {
		pdf, err := infra.RenderInvoicePDF(inv, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, service.Document{Filename: pdf.Filename, ContentType: service.MimePDF, Content: pdf.Content})
	}
	if want["zip"] {
		opts.XMLFilename = infra.ZUGFeRDXMLName
		pdf, err := infra.RenderInvoicePDF(inv, opts)
		if err != nil {
			return nil, err
		}
		pkg, err := infra.BuildZUGFeRD(pdf.Content, xmlDoc, inv.Number, inv.IssueDate)
		if err != nil {
			return nil, err
		}
		out = append(out, service.Document{Filename: pkg.Filename, ContentType: service.MimeZIP, Content: pkg.Content})
	}
	return out, nil
}

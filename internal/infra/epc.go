package infra

// epc.go: EPC069-12 "GiroCode" payload for SEPA credit transfers, plus QR rendering.

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"unicode"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/shopspring/decimal"
)

const (
	epcMaxName       = 70
	epcMaxRemittance = 140
	epcMaxPurpose    = 4
	epcQuietZone     = 4
	epcPNGScale      = 5

	// epcCharsetUTF8 is the EPC069-12 character set id for UTF-8.
	epcCharsetUTF8 = "1"
)

var (
	ErrEPCNameRequired = errors.New("epc: beneficiary name is required")
	ErrEPCIBANRequired = errors.New("epc: IBAN is required")
	ErrEPCVersion      = errors.New("epc: version must be 001 or 002")
	ErrEPCPurpose      = errors.New("epc: purpose code exceeds 4 characters")
)

// EPCRequest describes one SEPA credit transfer.
type EPCRequest struct {
	Name       string
	IBAN       string
	BIC        string
	Amount     decimal.Decimal
	Remittance string
	Purpose    string
	Version    string // "001" | "002"; empty means "002"
}

// EPCCode is a rendered payment QR code.
type EPCCode struct {
	Payload string
	SVG     string
	PNG     []byte
}

// BuildEPCPayload returns the newline-joined EPC payload.
func BuildEPCPayload(req EPCRequest) (string, error) {
	version := req.Version
	if version == "" {
		version = "002"
	}
	if version != "001" && version != "002" {
		return "", ErrEPCVersion
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", ErrEPCNameRequired
	}
	iban := NormalizeIBAN(req.IBAN)
	if iban == "" {
		return "", ErrEPCIBANRequired
	}
	if len([]rune(req.Purpose)) > epcMaxPurpose {
		return "", ErrEPCPurpose
	}

	lines := []string{
		"BCD",
		version,
		epcCharsetUTF8,
		"SCT",
		"",
		truncateRunes(name, epcMaxName),
		iban,
		strings.ToUpper(strings.TrimSpace(req.BIC)),
		"EUR" + req.Amount.StringFixed(2),
		req.Purpose,
		"",
		truncateRunes(req.Remittance, epcMaxRemittance),
	}
	return strings.Join(lines, "\n"), nil
}

// GenerateEPCQR builds the payload and renders it as SVG and PNG.
func GenerateEPCQR(req EPCRequest) (*EPCCode, error) {
	payload, err := BuildEPCPayload(req)
	if err != nil {
		return nil, err
	}
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("epc: encode qr: %w", err)
	}
	pngBytes, err := qrPNG(code, epcPNGScale)
	if err != nil {
		return nil, err
	}
	return &EPCCode{Payload: payload, SVG: qrSVG(code), PNG: pngBytes}, nil
}

// NormalizeIBAN strips all whitespace and upper-cases the result.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, iban))
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func qrDark(code barcode.Barcode, x, y int) bool {
	return color.GrayModel.Convert(code.At(x, y)).(color.Gray).Y < 128
}

// qrPNG draws an 8-bit grayscale image; fpdf cannot embed 16-bit PNGs.
func qrPNG(code barcode.Barcode, scale int) ([]byte, error) {
	b := code.Bounds()
	size := (b.Dx() + 2*epcQuietZone) * scale
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if !qrDark(code, b.Min.X+x, b.Min.Y+y) {
				continue
			}
			x0, y0 := (x+epcQuietZone)*scale, (y+epcQuietZone)*scale
			for py := y0; py < y0+scale; py++ {
				for px := x0; px < x0+scale; px++ {
					img.SetGray(px, py, color.Gray{Y: 0})
				}
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("epc: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func qrSVG(code barcode.Barcode) string {
	b := code.Bounds()
	size := b.Dx() + 2*epcQuietZone
	var path strings.Builder
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if qrDark(code, b.Min.X+x, b.Min.Y+y) {
				fmt.Fprintf(&path, "M%d %dh1v1h-1z", x+epcQuietZone, y+epcQuietZone)
			}
		}
	}
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`+
			`<rect width="100%%" height="100%%" fill="#fff"/><path fill="#000" d="%s"/></svg>`,
		size, size, path.String())
}

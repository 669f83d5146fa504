package infra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestBuildDATEVExport(t *testing.T) {
	out, err := BuildDATEVExport([]DATEVRow{
		{Number: "INV2026-00001", Gross: dec("595"), Taxed: true},
		{Number: "INV2026-00002", Gross: dec("200.5"), Taxed: false},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Buchungstext;Belegfeld1;Sollkonto;Habenkonto;Betrag;Steuersatz", lines[0])
	assert.Equal(t, "Rechnung INV2026-00001;INV2026-00001;8400;10000;595.00;19", lines[1])
	assert.Equal(t, "Rechnung INV2026-00002;INV2026-00002;8400;10000;200.50;0", lines[2])
}

func TestBuildDATEVExport_Latin1(t *testing.T) {
	out, err := BuildDATEVExport([]DATEVRow{{Number: "RÜ-1", Gross: dec("1"), Taxed: true}})
	require.NoError(t, err)

	// Ü is a single byte 0xDC in Windows-1252
	assert.Contains(t, string(out), "R\xdc-1")
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(out)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Rechnung RÜ-1")
}

package infra

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildZUGFeRD(t *testing.T) {
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pkg, err := BuildZUGFeRD([]byte("%PDF-1.4 fake"), []byte("<xml/>"), "INV2026-00001", issued)
	require.NoError(t, err)
	assert.Equal(t, "invoice-INV2026-00001-zugferd.zip", pkg.Filename)

	zr, err := zip.NewReader(bytes.NewReader(pkg.Content), int64(len(pkg.Content)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "invoice-INV2026-00001.pdf", zr.File[0].Name)
	assert.Equal(t, "zugferd/xml/zugferd-invoice.xml", zr.File[1].Name)

	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method)
	}
	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<xml/>", string(data))
}

func TestBuildZUGFeRD_Deterministic(t *testing.T) {
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a, err := BuildZUGFeRD([]byte("pdf"), []byte("xml"), "X1", issued)
	require.NoError(t, err)
	b, err := BuildZUGFeRD([]byte("pdf"), []byte("xml"), "X1", issued)
	require.NoError(t, err)
	assert.Equal(t, a.Content, b.Content)
}

package infra

// pdfa.go: PDF/A-3 completion for fpdf output.
// fpdf cannot mark associated files, reference the XMP stream from the catalog
// or declare an output intent. The rendered bytes are loaded into a pdfcpu
// context, the catalog and file specifications are edited there and the
// document is written out again.

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const srgbCondition = "sRGB IEC61966-2.1"

func init() {
	// No pdfcpu config.yml or user font directory is needed.
	api.DisableConfigDir()
}

// pdfcpuConfig keeps classic xref tables and uncompressed object syntax so the
// output stays inspectable.
func pdfcpuConfig() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// applyPDFA marks every embedded file as associated data, links the XMP packet
// from the catalog and, when icc is non-empty, adds an sRGB output intent.
func applyPDFA(src, icc []byte) ([]byte, error) {
	ctx, _, _, _, err := api.ReadValidateAndOptimize(bytes.NewReader(src), pdfcpuConfig(), time.Now())
	if err != nil {
		return nil, fmt.Errorf("pdfa: read: %w", err)
	}
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("pdfa: catalog: %w", err)
	}

	var fileSpecs []int
	metadata := -1
	for nr, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		switch obj := entry.Object.(type) {
		case types.Dict:
			if t := obj.Type(); t != nil && *t == "Filespec" {
				obj["AFRelationship"] = types.Name("Data")
				fileSpecs = append(fileSpecs, nr)
			}
		case types.StreamDict:
			if t := obj.Type(); t != nil && *t == "Metadata" {
				metadata = nr
			}
		}
	}

	if metadata >= 0 {
		catalog["Metadata"] = *types.NewIndirectRef(metadata, 0)
	}
	if len(fileSpecs) > 0 {
		sort.Ints(fileSpecs)
		af := make(types.Array, 0, len(fileSpecs))
		for _, nr := range fileSpecs {
			af = append(af, *types.NewIndirectRef(nr, 0))
		}
		catalog["AF"] = af
	}
	if len(icc) > 0 {
		intent, err := outputIntent(ctx, icc)
		if err != nil {
			return nil, err
		}
		catalog["OutputIntents"] = types.Array{*intent}
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("pdfa: write: %w", err)
	}
	return out.Bytes(), nil
}

// outputIntent stores the ICC profile and returns a reference to a GTS_PDFA1
// output intent dictionary pointing at it.
func outputIntent(ctx *pdfmodel.Context, icc []byte) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(icc)
	if err != nil {
		return nil, fmt.Errorf("pdfa: icc stream: %w", err)
	}
	sd.InsertInt("N", 3)
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("pdfa: icc stream: %w", err)
	}
	profile, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("pdfa: icc stream: %w", err)
	}

	d := types.Dict{
		"Type":                      types.Name("OutputIntent"),
		"S":                         types.Name("GTS_PDFA1"),
		"OutputCondition":           types.StringLiteral(srgbCondition),
		"OutputConditionIdentifier": types.StringLiteral(srgbCondition),
		"Info":                      types.StringLiteral(srgbCondition),
		"RegistryName":              types.StringLiteral("http://www.color.org"),
		"DestOutputProfile":         *profile,
	}
	ref, err := ctx.IndRefForNewObject(d)
	if err != nil {
		return nil, fmt.Errorf("pdfa: output intent: %w", err)
	}
	return ref, nil
}

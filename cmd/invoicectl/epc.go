package main

import (
	"fmt"
	"os"

	"invoicetool/internal/infra"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var epcOpts struct {
	req    infra.EPCRequest
	amount string
	png    string
	svg    string
}

var epcCmd = &cobra.Command{
	Use:   "epc",
	Short: "Generate an EPC (GiroCode) payment QR payload",
	Example: `  invoicectl epc --name "Müller GmbH" --iban DE89370400440532013000 --amount 795.00 \
    --remittance INV2026-00001 --png girocode.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(epcOpts.amount)
		if err != nil || !amount.IsPositive() {
			return fmt.Errorf("amount must be a positive decimal, got %q", epcOpts.amount)
		}
		req := epcOpts.req
		req.Amount = amount
		code, err := infra.GenerateEPCQR(req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), code.Payload)
		if epcOpts.png != "" {
			if err := os.WriteFile(epcOpts.png, code.PNG, 0o644); err != nil {
				return err
			}
		}
		if epcOpts.svg != "" {
			if err := os.WriteFile(epcOpts.svg, []byte(code.SVG), 0o644); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	f := epcCmd.Flags()
	f.StringVar(&epcOpts.req.Name, "name", "", "Beneficiary name")
	f.StringVar(&epcOpts.req.IBAN, "iban", "", "Beneficiary IBAN")
	f.StringVar(&epcOpts.req.BIC, "bic", "", "Beneficiary BIC")
	f.StringVar(&epcOpts.amount, "amount", "", "Amount in EUR")
	f.StringVar(&epcOpts.req.Remittance, "remittance", "", "Unstructured remittance text")
	f.StringVar(&epcOpts.req.Purpose, "purpose", "", "Purpose code (max 4 characters)")
	f.StringVar(&epcOpts.req.Version, "version", "002", "EPC version 001 | 002")
	f.StringVar(&epcOpts.png, "png", "", "Write the QR code as PNG")
	f.StringVar(&epcOpts.svg, "svg", "", "Write the QR code as SVG")
	_ = epcCmd.MarkFlagRequired("name")
	_ = epcCmd.MarkFlagRequired("iban")
	_ = epcCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(epcCmd)
}

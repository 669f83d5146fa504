package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"invoicetool/internal/tax"

	"github.com/spf13/cobra"
)

var totalsInput string

var totalsCmd = &cobra.Command{
	Use:     "totals",
	Short:   "Print net, tax and gross of a JSON invoice with its VAT breakdown",
	Example: `  invoicectl totals --input invoice.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := readInvoiceFile(totalsInput)
		if err != nil {
			return err
		}
		printTotals(cmd.OutOrStdout(), tax.Compute(inv.Lines), inv.Currency)
		return nil
	},
}

func init() {
	totalsCmd.Flags().StringVarP(&totalsInput, "input", "i", "", "JSON invoice file")
	_ = totalsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(totalsCmd)
}

func printTotals(w io.Writer, t tax.Totals, currency string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "category\trate\tbase\ttax\t")
	for _, b := range t.Breakdown {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", b.Category, b.Rate.Shift(2).String()+" %", b.Base.StringFixed(2), b.Tax.StringFixed(2))
	}
	tw.Flush()
	fmt.Fprintf(w, "net:   %s %s\n", t.Net.StringFixed(2), currency)
	fmt.Fprintf(w, "tax:   %s %s\n", t.Tax.StringFixed(2), currency)
	fmt.Fprintf(w, "gross: %s %s\n", t.Gross().StringFixed(2), currency)
}

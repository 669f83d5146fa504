package main

import (
	"context"
	"fmt"

	"invoicetool/internal/config"
	"invoicetool/internal/infra"
	"invoicetool/internal/model"
	"invoicetool/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo organization and customer in the configured database",
	Long: `seed migrates the schema of DATABASE_URL and inserts one issuer with a bank
account and one French B2B customer. It prints both ids for use with the API.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := infra.RunMigrations(db); err != nil {
		return err
	}

	org, customer := demoParties()
	parties := repository.NewPartyRepository(db)
	ctx := context.Background()
	if err := parties.CreateOrganization(ctx, org); err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	customer.OrganizationID = org.ID
	if err := parties.CreateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}

	log.Info().Str("organization_id", org.ID.String()).Str("customer_id", customer.ID.String()).Msg("demo data seeded")
	fmt.Fprintf(cmd.OutOrStdout(), "organization_id=%s\ncustomer_id=%s\n", org.ID, customer.ID)
	return nil
}

func demoParties() (*model.Organization, *model.Customer) {
	str := func(s string) *string { return &s }
	org := &model.Organization{
		Name:            "Muster Consulting GmbH",
		LegalForm:       str("GmbH"),
		Street:          "Friedrichstraße 10",
		PostalCode:      "10117",
		City:            "Berlin",
		Country:         "DE",
		VATID:           str("DE123456789"),
		TaxNumber:       str("30/123/45678"),
		Email:           str("rechnung@muster-consulting.de"),
		IBAN:            str("DE89370400440532013000"),
		BIC:             str("COBADEFFXXX"),
		DefaultCurrency: "EUR",
	}
	customer := &model.Customer{
		Name:       "Acme SARL",
		Street:     "1 Rue de la Paix",
		PostalCode: "75002",
		City:       "Paris",
		Country:    "FR",
		VATID:      str("FR40303265045"),
		Email:      str("ap@acme.example"),
		Language:   "fr",
		Currency:   "EUR",
	}
	return org, customer
}

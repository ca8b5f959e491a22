package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/afip-tools/go-afip-client/afip"
)

func metadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Manage the local copies of AFIP's lookup tables",
	}
	cmd.AddCommand(metadataRefreshCmd())
	return cmd
}

func metadataRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch receipt, document, VAT, tax, concept and currency types from AFIP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.metadata.RefreshAll(context.Background()); err != nil {
				return authMessage(err)
			}
			fmt.Println("metadata tables refreshed")
			return nil
		},
	}
	return cmd
}

// authMessage translates the authentication taxonomy into operator-facing
// messages; anything else passes through untouched.
func authMessage(err error) error {
	switch {
	case errors.Is(err, afip.ErrCertificateExpired):
		return fmt.Errorf("the taxpayer's certificate has expired; issue a new one and save it before retrying")
	case errors.Is(err, afip.ErrUntrustedCertificate):
		return fmt.Errorf("AFIP does not trust the taxpayer's certificate; check that it was issued for the right environment")
	case errors.Is(err, afip.ErrCorruptCertificate):
		return fmt.Errorf("the stored certificate or private key could not be parsed; re-save the PEM files")
	case errors.Is(err, afip.ErrNoTaxPayers):
		return fmt.Errorf("no taxpayers registered; create one with 'afip taxpayer create' first")
	case errors.Is(err, afip.ErrAuthentication):
		return fmt.Errorf("authentication against AFIP failed: %v", err)
	default:
		return err
	}
}

func ticketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Manage stored authentication tickets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired authentication tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.store.DeleteExpiredTickets(context.Background(), time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("%d expired ticket(s) deleted\n", n)
			return nil
		},
	})
	return cmd
}

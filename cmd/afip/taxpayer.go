package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/crypto"
	"github.com/afip-tools/go-afip-client/afip/model"
)

func taxPayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxpayer",
		Short: "Manage taxpayers and their key material",
	}
	cmd.AddCommand(taxPayerCreateCmd())
	cmd.AddCommand(taxPayerGenKeyCmd())
	cmd.AddCommand(taxPayerGenCSRCmd())
	cmd.AddCommand(posCreateCmd())
	return cmd
}

func taxPayerCreateCmd() *cobra.Command {
	var (
		name    string
		rawCUIT string
		keyPath string
		crtPath string
		sandbox bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a taxpayer with its key and certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cuit, err := afip.ParseCUIT(rawCUIT)
			if err != nil {
				return err
			}

			tp := &model.TaxPayer{Name: name, CUIT: cuit, Sandbox: sandbox}
			if keyPath != "" {
				if tp.KeyPEM, err = os.ReadFile(keyPath); err != nil {
					return err
				}
			}
			if crtPath != "" {
				if tp.CertificatePEM, err = os.ReadFile(crtPath); err != nil {
					return err
				}
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.SaveTaxPayer(context.Background(), tp); err != nil {
				return err
			}
			fmt.Printf("taxpayer %d created (CUIT %d)\n", tp.ID, tp.CUIT)
			if !tp.CertificateExpires.IsZero() {
				fmt.Printf("certificate expires %s\n", tp.CertificateExpires.Format("2006-01-02"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "taxpayer name")
	cmd.Flags().StringVar(&rawCUIT, "cuit", "", "CUIT, with or without dashes")
	cmd.Flags().StringVar(&keyPath, "key", "", "PEM private key file")
	cmd.Flags().StringVar(&crtPath, "cert", "", "PEM certificate file")
	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "use the homologation environment")
	cobra.CheckErr(cmd.MarkFlagRequired("name"))
	cobra.CheckErr(cmd.MarkFlagRequired("cuit"))
	return cmd
}

func taxPayerGenKeyCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a new RSA private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.CreateKey()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, key, 0600); err != nil {
				return err
			}
			fmt.Printf("private key written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "afip.key", "output file")
	return cmd
}

func taxPayerGenCSRCmd() *cobra.Command {
	var (
		keyPath string
		name    string
		rawCUIT string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "gencsr",
		Short: "Generate a certificate signing request for AFIP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cuit, err := afip.ParseCUIT(rawCUIT)
			if err != nil {
				return err
			}
			key, err := os.ReadFile(keyPath)
			if err != nil {
				return err
			}
			csr, err := crypto.CreateCSR(key, name, name, fmt.Sprintf("CUIT %d", cuit))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, csr, 0644); err != nil {
				return err
			}
			fmt.Printf("CSR written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "afip.key", "PEM private key file")
	cmd.Flags().StringVar(&name, "name", "", "organization name on the certificate")
	cmd.Flags().StringVar(&rawCUIT, "cuit", "", "CUIT the certificate is issued for")
	cmd.Flags().StringVar(&out, "out", "afip.csr", "output file")
	cobra.CheckErr(cmd.MarkFlagRequired("name"))
	cobra.CheckErr(cmd.MarkFlagRequired("cuit"))
	return cmd
}

func posCreateCmd() *cobra.Command {
	var (
		taxpayerID int64
		number     int
		issuing    string
		address    string
	)
	cmd := &cobra.Command{
		Use:   "pos",
		Short: "Register a point of sales for a taxpayer",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			pos := &model.PointOfSales{
				TaxPayerID:     taxpayerID,
				Number:         number,
				IssuingName:    issuing,
				IssuingAddress: address,
			}
			if err := a.store.CreatePointOfSales(context.Background(), pos); err != nil {
				return err
			}
			fmt.Printf("point of sales %04d created for taxpayer %d\n", pos.Number, taxpayerID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&taxpayerID, "taxpayer", 0, "owning taxpayer id")
	cmd.Flags().IntVar(&number, "number", 0, "point of sales number assigned by AFIP")
	cmd.Flags().StringVar(&issuing, "issuing-name", "", "name printed on receipts")
	cmd.Flags().StringVar(&address, "issuing-address", "", "address printed on receipts")
	cobra.CheckErr(cmd.MarkFlagRequired("taxpayer"))
	cobra.CheckErr(cmd.MarkFlagRequired("number"))
	return cmd
}

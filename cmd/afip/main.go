// Command afip manages taxpayers, requests CAE authorization for
// receipts and renders printable documents against AFIP's WSAA and WSFE
// web services.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/afip-tools/go-afip-client/afip/pdf"
	"github.com/afip-tools/go-afip-client/afip/soap"
	"github.com/afip-tools/go-afip-client/afip/store"
	"github.com/afip-tools/go-afip-client/afip/util"
	"github.com/afip-tools/go-afip-client/afip/wsaa"
	"github.com/afip-tools/go-afip-client/afip/wsfe"
)

var dbPath string

// app bundles the wired services every subcommand runs against.
type app struct {
	store      *store.Store
	authorizer *wsfe.Authorizer
	metadata   *wsfe.MetadataService
	pdf        *pdf.Generator
}

func openApp() (*app, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}

	httpClient := &http.Client{Timeout: 90 * time.Second}
	transport := soap.New(httpClient)
	tickets := wsaa.NewTicketService(st, wsaa.NewClient(transport))
	client := wsfe.NewClient(transport)

	return &app{
		store:      st,
		authorizer: wsfe.NewAuthorizer(st, client, tickets),
		metadata:   wsfe.NewMetadataService(st, client, tickets),
		pdf:        pdf.NewGenerator(st),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logrus.WithError(err).Warn("close database")
	}
}

func main() {
	if util.DebugEnabled() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:   "afip",
		Short: "Electronic invoicing against AFIP's WSAA and WSFE services",
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db",
		util.GetEnvOrDefault("AFIP_DB", "afip.db"), "path to the SQLite database")

	rootCmd.AddCommand(taxPayerCmd())
	rootCmd.AddCommand(receiptCmd())
	rootCmd.AddCommand(metadataCmd())
	rootCmd.AddCommand(ticketCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/afip-tools/go-afip-client/afip/model"
)

func receiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Authorize receipts and render printable documents",
	}
	cmd.AddCommand(receiptValidateCmd())
	cmd.AddCommand(receiptPDFCmd())
	return cmd
}

func receiptValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [id...]",
		Short: "Request CAE authorization for the given receipts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := context.Background()

			var receipts []*model.Receipt
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid receipt id %q", arg)
				}
				r, err := a.store.GetReceipt(ctx, id)
				if err != nil {
					return fmt.Errorf("load receipt %d: %w", id, err)
				}
				receipts = append(receipts, r)
			}

			errs, err := a.authorizer.Validate(ctx, receipts)
			if err != nil {
				return err
			}

			for _, r := range receipts {
				rv, rvErr := a.store.GetReceiptValidation(ctx, r.ID)
				if rvErr != nil {
					continue
				}
				pos, posErr := a.store.GetPointOfSales(ctx, r.PointOfSalesID)
				if posErr != nil {
					continue
				}
				fmt.Printf("receipt %d approved: number %s, CAE %s (expires %s)\n",
					r.ID, model.FormatNumber(pos.Number, r.ReceiptNumber),
					rv.CAE, rv.CAEExpiration.Format("2006-01-02"))
			}
			if len(errs) > 0 {
				for _, msg := range errs {
					fmt.Fprintln(os.Stderr, msg)
				}
				return fmt.Errorf("%d receipt(s) rejected", len(errs))
			}
			return nil
		},
	}
	return cmd
}

func receiptPDFCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pdf [id]",
		Short: "Render an authorized receipt as a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid receipt id %q", args[0])
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := a.pdf.Render(context.Background(), id, f); err != nil {
				os.Remove(out)
				return err
			}
			fmt.Printf("PDF written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "receipt.pdf", "output file")
	return cmd
}

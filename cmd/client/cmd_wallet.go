package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/atinyakov/HorosCase/internal/client/storage"
	"github.com/spf13/cobra"
)

var errBadAmount = errors.New("amount must be a positive number with at most two decimals")

// parseAmount converts a decimal amount such as "12", "12.5" or "1,250.00"
// into cents.
func parseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, errBadAmount
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, errBadAmount
	}
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseUint(whole, 10, 40)
	if err != nil {
		return 0, errBadAmount
	}
	var cents uint64
	if frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		if cents, err = strconv.ParseUint(frac, 10, 8); err != nil {
			return 0, errBadAmount
		}
	}
	total := int64(units*100 + cents)
	if total <= 0 {
		return 0, errBadAmount
	}
	return total, nil
}

func newDepositCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Add funds to your balance, e.g. deposit 25.50",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			c, err := a.client(true)
			if err != nil {
				return err
			}
			balance, err := c.Deposit(cmd.Context(), cents)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deposited %s. Balance: %s\n", storage.FormatCents(cents), storage.FormatCents(balance))
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show your latest balance and item movements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			entries, err := c.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tKIND\tAMOUNT\tITEM\tWITH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, storage.FormatCents(e.AmountCents), e.ItemName, e.Counterparty)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries (server default when 0)")
	return cmd
}

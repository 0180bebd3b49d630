package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/atinyakov/HorosCase/internal/client/storage"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
)

func newCasesCmd(a *app) *cobra.Command {
	var game string
	var tiers bool
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "List the cases on sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(false)
			if err != nil {
				return err
			}
			cases, err := c.Cases(cmd.Context(), game)
			if err != nil {
				return err
			}
			printCases(a.out, cases, tiers)
			return nil
		},
	}
	cmd.Flags().StringVar(&game, "game", "", "only cases of this game")
	cmd.Flags().BoolVar(&tiers, "tiers", false, "show reward tiers and their chances")
	return cmd
}

func printCases(out io.Writer, cases []models.Case, tiers bool) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGAME\tPRICE")
	for _, cs := range cases {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cs.ID, cs.Name, cs.Game, storage.FormatCents(cs.Price))
		if !tiers {
			continue
		}
		for _, t := range cs.RewardTiers {
			fmt.Fprintf(tw, "\t  %s\t%s\t%s\n", t.Name, storage.FormatWeight(t.Weight), storage.FormatCents(t.Value))
		}
	}
	_ = tw.Flush()
}

func newOpenCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "open <caseID>",
		Short: "Buy and open a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("count must be at least 1")
			}
			c, err := a.client(true)
			if err != nil {
				return err
			}
			if count == 1 {
				res, err := c.Open(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "You got %s [%s] worth %s\nBalance: %s\n",
					res.Item.ItemName, res.Item.Tier, storage.FormatCents(res.Item.ValueCents), storage.FormatCents(res.BalanceCents))
				return nil
			}

			bar := pb.New(count).SetWriter(a.err).Start()
			var (
				got     []models.InventoryItem
				balance int64
				openErr error
			)
			for range count {
				res, err := c.Open(cmd.Context(), args[0])
				if err != nil {
					openErr = err
					break
				}
				got = append(got, res.Item)
				balance = res.BalanceCents
				bar.Increment()
			}
			bar.Finish()

			printItems(a.out, got)
			if len(got) > 0 {
				fmt.Fprintf(a.out, "Opened %d of %d. Balance: %s\n", len(got), count, storage.FormatCents(balance))
			}
			return openErr
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of cases to open")
	return cmd
}

func printItems(out io.Writer, items []models.InventoryItem) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tTIER\tGAME\tVALUE\tTRADABLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", it.ID, it.ItemName, it.Tier, it.Game, storage.FormatCents(it.ValueCents), it.Tradable)
	}
	_ = tw.Flush()
}

func newInventoryCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List your items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			items, err := c.Inventory(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(a.out, "Inventory is empty")
				return nil
			}
			printItems(a.out, items)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "all, csgo, dota2, rust, rare or tradable")
	return cmd
}

func newSellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sell <itemID>",
		Short: "Sell an item for its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			res, err := c.Sell(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Sold for %s. Balance: %s\n", storage.FormatCents(res.CreditCents), storage.FormatCents(res.BalanceCents))
			return nil
		},
	}
}

func newGiftCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gift <itemID> <username|email>",
		Short: "Give a tradable item to another player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			item, err := c.Gift(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Gifted %s to %s\n", item.ItemName, args[1])
			return nil
		},
	}
}

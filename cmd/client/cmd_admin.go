package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/atinyakov/HorosCase/internal/client/storage"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Administrator dashboard",
	}
	admin.AddCommand(newAdminStatsCmd(a), newAdminResetCmd(a), newAdminFairnessCmd(a))
	return admin
}

func newAdminStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the platform counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			s, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Users:        %d\nCases opened: %d\nTraders:      %d\nItems sold:   %d\n",
				s.Users, s.CasesOpened, s.Traders, s.ItemsSold)
			return nil
		},
	}
}

func newAdminResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:       "reset <counter>",
		Short:     "Zero a platform counter",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: models.Counters,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !a.prompter().Confirm(fmt.Sprintf("Reset %s", args[0])) {
				fmt.Fprintln(a.out, "Aborted")
				return nil
			}
			c, err := a.client(true)
			if err != nil {
				return err
			}
			if err := c.ResetCounter(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s reset\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newAdminFairnessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fairness <caseID>",
		Short: "Compare a case's draws with its declared weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			r, err := c.Fairness(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tWEIGHT\tEXPECTED\tOBSERVED")
			for _, t := range r.Tiers {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%d\n", t.Name, storage.FormatWeight(t.Weight), t.Expected, t.Observed)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Draws: %d  chi2: %.3f  df: %d  p-value: %.4f\n", r.Draws, r.ChiSquare, r.DegreesOfFreedom, r.PValue)
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/atinyakov/HorosCase/internal/client/storage"
	"github.com/spf13/cobra"
)

func newRegisterCmd(a *app) *cobra.Command {
	var email, username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; prompts for the e-mailed code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.prompter()
			email = p.Fill(email, "Email")
			username = p.Fill(username, "Username")
			password = p.Fill(password, "Password")

			c, err := a.client(false)
			if err != nil {
				return err
			}
			if err := c.Register(cmd.Context(), email, username, password); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Verification code sent to %s\n", email)

			code := p.Ask("Code", "")
			if code == "" {
				fmt.Fprintln(a.out, "Run `horoscase verify` once the code arrives.")
				return nil
			}
			return verifyAndRemember(cmd, a, c, email, code)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&username, "username", "", "public display name")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Complete a registration with the e-mailed code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.prompter()
			email = p.Fill(email, "Email")
			code = p.Fill(code, "Code")
			c, err := a.client(false)
			if err != nil {
				return err
			}
			return verifyAndRemember(cmd, a, c, email, code)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&code, "code", "", "six-digit verification code")
	return cmd
}

func verifyAndRemember(cmd *cobra.Command, a *app, c *storage.Client, email, code string) error {
	resp, err := c.VerifyCode(cmd.Context(), email, code)
	if err != nil {
		return err
	}
	if err := a.remember(resp); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s! Balance: %s\n", resp.User.Username, storage.FormatCents(resp.User.BalanceCents))
	return nil
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.prompter()
			email = p.Fill(email, "Email")
			password = p.Fill(password, "Password")
			c, err := a.client(false)
			if err != nil {
				return err
			}
			resp, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.remember(resp); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s)\n", resp.User.Username, resp.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			st, err := a.store()
			if err != nil {
				return err
			}
			if err := st.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newMeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your profile and balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s>\nRole:    %s\nBalance: %s\n", me.Username, me.Email, me.Role, storage.FormatCents(me.BalanceCents))
			return nil
		},
	}
}

// Package main is the command-line client of the HorosCase API.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atinyakov/HorosCase/internal/client/storage"
	"github.com/spf13/cobra"
)

var (
	version   string
	buildDate string
)

// app carries the state shared by every command.
type app struct {
	server      string
	caPath      string
	sessionPath string

	in  io.Reader
	out io.Writer
	err io.Writer
}

func (a *app) store() (*storage.SessionStore, error) {
	path := a.sessionPath
	if path == "" {
		var err error
		if path, err = storage.DefaultSessionPath(); err != nil {
			return nil, err
		}
	}
	return &storage.SessionStore{Path: path}, nil
}

func (a *app) prompter() *storage.Prompter {
	return storage.NewPrompter(a.in, a.out)
}

// client returns an API client. With authenticated set, the stored session
// token is attached and a missing session is an error.
func (a *app) client(authenticated bool) (*storage.Client, error) {
	httpClient, err := storage.NewHTTPClient(a.caPath)
	if err != nil {
		return nil, err
	}
	c := &storage.Client{BaseURL: a.server, HTTP: httpClient}
	if !authenticated {
		return c, nil
	}
	st, err := a.store()
	if err != nil {
		return nil, err
	}
	sess, err := st.Load(a.server)
	if errors.Is(err, storage.ErrNoSession) {
		return nil, fmt.Errorf("%w: run `horoscase login` first", err)
	}
	if err != nil {
		return nil, err
	}
	c.Token = sess.Token
	return c, nil
}

// remember stores a freshly issued session.
func (a *app) remember(resp storage.AuthResponse) error {
	st, err := a.store()
	if err != nil {
		return err
	}
	return st.Save(storage.Session{
		Server:    a.server,
		Token:     resp.Token,
		Username:  resp.User.Username,
		Role:      string(resp.User.Role),
		CreatedAt: time.Now().UTC(),
	})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "horoscase",
		Short:         "Open cases and manage your inventory",
		Version:       fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.err)

	root.PersistentFlags().StringVar(&a.server, "server", "https://localhost:8080", "API base URL")
	root.PersistentFlags().StringVar(&a.caPath, "ca", "", "CA certificate trusted for the server (default: system roots)")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", "", "session file (default ~/.horoscase/session.json)")

	root.AddCommand(
		newRegisterCmd(a),
		newVerifyCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newMeCmd(a),
		newCasesCmd(a),
		newOpenCmd(a),
		newInventoryCmd(a),
		newSellCmd(a),
		newGiftCmd(a),
		newDepositCmd(a),
		newHistoryCmd(a),
		newAdminCmd(a),
	)
	return root
}

func main() {
	a := &app{in: os.Stdin, out: os.Stdout, err: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

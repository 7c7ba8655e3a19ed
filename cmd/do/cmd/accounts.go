package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/studyolle/studyolle/internal/app"
	"github.com/studyolle/studyolle/internal/config"
	"github.com/studyolle/studyolle/internal/repository"
)

func AccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <email-or-nickname>",
		Short: "Show the account an email or nickname resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(config.Load())
			if err != nil {
				return err
			}
			defer a.Close()

			account, err := a.AccountService.LoadAccountByIdentity(cmd.Context(), args[0])
			if errors.Is(err, repository.ErrAccountNotFound) {
				return fmt.Errorf("no account for %q", args[0])
			}
			if err != nil {
				return err
			}

			joined := "-"
			if account.JoinedAt != nil {
				joined = account.JoinedAt.Format("2006-01-02 15:04:05")
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\t%s\n", account.ID)
			fmt.Fprintf(tw, "Email\t%s\n", account.Email)
			fmt.Fprintf(tw, "Nickname\t%s\n", account.Nickname)
			fmt.Fprintf(tw, "Verified\t%t\n", account.EmailVerified)
			fmt.Fprintf(tw, "Joined\t%s\n", joined)
			fmt.Fprintf(tw, "Created\t%s\n", account.CreatedAt.Format("2006-01-02 15:04:05"))
			return tw.Flush()
		},
	})

	return cmd
}

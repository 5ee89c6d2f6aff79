package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"forumdata/internal/auth"
)

type registerOptions struct {
	password string
	email    string
	nickname string
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	o := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(rootOpts, o, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&o.password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&o.email, "email", "", "contact email")
	cmd.Flags().StringVar(&o.nickname, "nickname", "", "display name (defaults to the username)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runRegister(opts *RootOptions, o *registerOptions, username string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.auth.CreateAccount(auth.Registration{
		Username: username,
		Nickname: o.nickname,
		Email:    o.email,
		Password: o.password,
	})
	if !res.Success {
		return WrapExitError(ExitFailure, res.Message, res.Err)
	}

	u := *res.User
	u.Password = ""
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), u)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %d)\n", u.Username, u.ID)
	return nil
}

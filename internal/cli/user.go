package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// passwordEnv supplies the initial password when neither flag is given.
const passwordEnv = "REGISTRY_BOOTSTRAP_PASSWORD"

var errPasswordRequired = errors.New("password required: use --password-stdin, --password or " + passwordEnv)

func newUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registry accounts",
		RunE:  requireSubcommand,
	}

	var (
		role          string
		password      string
		passwordStdin bool
	)
	createCmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Register a new account",
		Long: `Register a new account with the given role.

This is the usual way to create the first admin on a fresh store.
The password is read from the first line of stdin with --password-stdin,
from --password, or from $`+passwordEnv+`, in that order.`,
		Example: `  printf '%s\n' "$ADMIN_PASSWORD" | registryctl user create alice --role admin --password-stdin`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := resolvePassword(cmd.InOrStdin(), passwordStdin, password)
			if err != nil {
				return err
			}

			rt, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := rt.services.Registration.Register(cmd.Context(), args[0], secret, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", summary.Username, summary.Role)
			return nil
		},
	}
	createCmd.Flags().StringVar(&role, "role", "user", "Role for the account (admin or user)")
	createCmd.Flags().StringVar(&password, "password", "", "Initial password (visible in the process list)")
	createCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the initial password from stdin")
	createCmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show all accounts and their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			users, err := rt.services.Users.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users registered. Run 'registryctl user create <username>' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\n", u.Username, u.Role)
			}
			return w.Flush()
		},
	}

	setRoleCmd := &cobra.Command{
		Use:   "set-role <username> <role>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.services.Users.SetRole(cmd.Context(), operatorActor, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], args[1])
			return nil
		},
	}

	userCmd.AddCommand(createCmd, listCmd, setRoleCmd)
	return userCmd
}

func resolvePassword(stdin io.Reader, fromStdin bool, flagValue string) (string, error) {
	switch {
	case fromStdin:
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", errPasswordRequired
		}
		return line, nil
	case flagValue != "":
		return flagValue, nil
	}
	if env, ok := os.LookupEnv(passwordEnv); ok && env != "" {
		return env, nil
	}
	return "", errPasswordRequired
}

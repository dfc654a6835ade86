package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	app "github.com/R3E-Network/classledger/internal/app"
	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/app/services/auth"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage back-office accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			users, err := a.Auth.ListUsers(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tNAME\tACTIVE\tLAST LOGIN")
			for _, u := range users {
				last := "-"
				if u.LastLogin != nil {
					last = u.LastLogin.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.Role, u.RealName, u.IsActive, last)
			}
			return tw.Flush()
		})
	},
}

var newUser auth.RegisterInput

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			u, err := a.Auth.Register(ctx, newUser)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, role %s)\n", u.Username, u.ID, u.Role)
			return nil
		})
	},
}

var setActive bool

var usersSetActiveCmd = &cobra.Command{
	Use:   "set-active <id>",
	Short: "Enable or disable an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			u, err := a.Auth.SetUserActive(ctx, 0, id, setActive)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s active=%t\n", u.Username, u.IsActive)
			return nil
		})
	},
}

func init() {
	f := usersCreateCmd.Flags()
	f.StringVar(&newUser.Username, "username", "", "login name")
	f.StringVar(&newUser.Password, "password", "", "initial password")
	f.StringVar((*string)(&newUser.Role), "role", string(user.RoleOperator), "admin, teacher or operator")
	f.StringVar(&newUser.RealName, "real-name", "", "display name")
	f.StringVar(&newUser.Email, "email", "", "email address")
	f.StringVar(&newUser.Phone, "phone", "", "phone number")
	_ = usersCreateCmd.MarkFlagRequired("username")
	_ = usersCreateCmd.MarkFlagRequired("password")
	_ = usersCreateCmd.MarkFlagRequired("real-name")

	usersSetActiveCmd.Flags().BoolVar(&setActive, "active", true, "whether the account may log in")

	usersCmd.AddCommand(usersListCmd, usersCreateCmd, usersSetActiveCmd)
}

package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	app "github.com/R3E-Network/classledger/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print database and session statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			st, err := a.System.Status(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "driver\t%s\n", st.Driver)
			tables := make([]string, 0, len(st.Tables))
			for name := range st.Tables {
				tables = append(tables, name)
			}
			sort.Strings(tables)
			for _, name := range tables {
				fmt.Fprintf(tw, "rows %s\t%d\n", name, st.Tables[name])
			}
			fmt.Fprintf(tw, "active sessions\t%d\n", st.ActiveSessions)
			fmt.Fprintf(tw, "failed logins (24h)\t%d\n", st.FailedLoginsLast24h)
			fmt.Fprintf(tw, "active deduction rules\t%d\n", st.ActiveDeductionRules)
			return tw.Flush()
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired sessions and old login attempts once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			res, err := a.Maintenance.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired sessions removed: %d\nlogin attempts removed: %d\n",
				res.ExpiredSessions, res.LoginAttempts)
			return nil
		})
	},
}

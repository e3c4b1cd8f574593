package cli

import (
	"fmt"
	"time"

	"github.com/guse-cli/guse/internal/doctor"
	"github.com/guse-cli/guse/internal/events"
	"github.com/guse-cli/guse/internal/security"
	"github.com/guse-cli/guse/internal/ui"
	"github.com/guse-cli/guse/internal/util"
	"github.com/spf13/cobra"
)

func newDoctorCmd(a *app) *cobra.Command {
	var jsonOut, fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check git, the profile file and the SSH config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := doctor.Run(a.settings)
			if fix && len(report.Permissions) > 0 {
				fixed, err := security.Fix(report.Permissions)
				for _, p := range fixed {
					fmt.Fprintf(cmd.ErrOrStderr(), "tightened permissions of %s\n", util.ContractHome(p))
				}
				if err != nil {
					return fmt.Errorf("fix permissions: %w", err)
				}
				report = doctor.Run(a.settings)
			}
			if jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else if len(report.Issues) == 0 {
				successf(cmd, "No issues found.")
			} else {
				var rows [][]string
				for _, i := range report.Issues {
					rows = append(rows, []string{string(i.Severity), i.Check, i.Target, i.Message, i.Recommendation})
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"SEVERITY", "CHECK", "TARGET", "MESSAGE", "FIX"}, rows))
				s := doctor.Summary(report.Issues)
				fmt.Fprintf(cmd.OutOrStdout(), "%d high, %d medium, %d low\n",
					s[doctor.SeverityHigh], s[doctor.SeverityMedium], s[doctor.SeverityLow])
			}
			if report.HasHigh() {
				return fmt.Errorf("doctor found high severity issues")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVar(&fix, "fix", false, "tighten file permissions the audit flags")
	return cmd
}

func newLogCmd(a *app) *cobra.Command {
	var q events.Query
	var since time.Duration
	var jsonOut, clearLog bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent profile changes and switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := events.Default()
			if err != nil {
				return err
			}
			if clearLog {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Journal cleared.")
				return nil
			}
			if since > 0 {
				q.Since = time.Now().Add(-since)
			}
			evts, err := store.Read(q)
			if err != nil {
				return err
			}
			if jsonOut {
				if evts == nil {
					evts = []events.Event{}
				}
				return writeJSON(cmd.OutOrStdout(), evts)
			}
			if len(evts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events recorded.")
				return nil
			}
			rows := make([][]string, 0, len(evts))
			for _, e := range evts {
				rows = append(rows, []string{
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Type,
					util.EmptyDash(e.ProfileID),
					util.EmptyDash(util.ContractHome(e.Repo)),
					util.EmptyDash(e.Message),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"TIME", "TYPE", "PROFILE", "REPO", "DETAIL"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.ProfileID, "profile", "", "only events for this profile")
	cmd.Flags().StringVar(&q.Type, "type", "", "only events of this type (e.g. switch_applied)")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "newest events to show (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this (e.g. 24h)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVar(&clearLog, "clear", false, "delete the journal")
	return cmd
}

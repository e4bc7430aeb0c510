package cmd

import (
	"github.com/spf13/cobra"
)

var advanceCmd = &cobra.Command{
	Use:   "advance <challenge-id>",
	Short: "Roll a challenge past a week whose goal was not met",
	Long: "Advance runs the week-boundary rollover for a lapsed week: a banked\n" +
		"chance soft-passes the week, otherwise the combo resets. Weeks whose\n" +
		"goal was met advance automatically when the last visit is counted.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, eng, _, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		out, err := eng.AdvanceWeek(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printWeekOutcome(cmd, out)
		return nil
	},
}

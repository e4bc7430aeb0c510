package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <challenge-id>",
	Short: "Show a challenge's visit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := cmd.Context()

		c, err := st.Challenges().Get(ctx, args[0])
		if err != nil {
			return err
		}
		visits, err := st.Visits().ListForChallenge(ctx, c.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: week %d/%d, visits %d/%d, combo %d, chances %d, %s\n",
			c.PlaceName, c.CurrentWeek, c.DurationWeeks,
			c.WeeklyVisits, c.WeeklyGoal, c.Combo, c.Chances, c.Status)
		if c.GraduatedAt != nil {
			fmt.Fprintf(out, "graduated %s\n", c.GraduatedAt.Format("2006-01-02"))
		}

		for _, v := range visits {
			mark := " "
			if v.Counted {
				mark = "✓"
			}
			dwell := "-"
			if v.DwellMins != nil {
				dwell = fmt.Sprintf("%dm", *v.DwellMins)
			}
			state := ""
			if v.ExitedAt == nil {
				state = "  (open)"
			}
			fmt.Fprintf(out, "%s %s  %s  week %d  dwell %s%s\n",
				mark, v.EnteredAt.Format("2006-01-02 15:04"), v.Day, v.Week, dwell, state)
		}
		return nil
	},
}

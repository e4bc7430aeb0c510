package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/candemir/geopact/internal/engine"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin <challenge-id>",
	Short: "Record a manual visit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, eng, _, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var dwell *time.Duration
		if d, _ := cmd.Flags().GetDuration("dwell"); d > 0 {
			dwell = &d
		}

		out, err := eng.RecordVisit(cmd.Context(), args[0], dwell)
		if err != nil {
			return err
		}
		printVisitOutcome(cmd, out)
		return nil
	},
}

func init() {
	checkinCmd.Flags().Duration("dwell", 0, "Dwell duration, e.g. 45m")
}

func printVisitOutcome(cmd *cobra.Command, out engine.VisitOutcome) {
	w := cmd.OutOrStdout()
	if !out.Counted {
		fmt.Fprintf(w, "not counted: %s\n", out.Reason)
		return
	}
	fmt.Fprintln(w, "counted")
	if out.Week != nil {
		printWeekOutcome(cmd, *out.Week)
	}
}

func printWeekOutcome(cmd *cobra.Command, out engine.WeekOutcome) {
	w := cmd.OutOrStdout()
	switch {
	case out.Completed:
		fmt.Fprintf(w, "week complete! combo %+d\n", out.ComboChange)
	case out.ChanceUsed:
		fmt.Fprintln(w, "week missed, chance used")
	default:
		fmt.Fprintf(w, "week missed, combo %+d\n", out.ComboChange)
	}
	if out.BonusChance {
		fmt.Fprintln(w, "bonus chance earned")
	}
	if out.Graduated {
		fmt.Fprintln(w, "challenge graduated")
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/candemir/geopact/internal/alarm"
)

var alarmCmd = &cobra.Command{
	Use:   "alarm",
	Short: "Manage arrival alarms",
}

var alarmAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an arrival alarm",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		flags := cmd.Flags()
		label, _ := flags.GetString("label")
		lat, _ := flags.GetFloat64("lat")
		lon, _ := flags.GetFloat64("lon")
		radius, _ := flags.GetFloat64("radius")
		repeat, _ := flags.GetBool("repeat")

		a := alarm.New(label, lat, lon, radius, !repeat, cfg.Clock().Now())
		if err := st.Alarms().Create(cmd.Context(), a); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.ID)
		return nil
	},
}

var alarmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alarms",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		alarms, err := st.Alarms().List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, a := range alarms {
			state := "armed"
			if !a.Armed {
				state = "disarmed"
			}
			mode := "repeat"
			if a.OneShot {
				mode = "one-shot"
			}
			fmt.Fprintf(out, "%s  %-20s (%.5f, %.5f) r=%.0fm  %s  %s\n",
				a.ID, a.Label, a.Lat, a.Lon, a.Radius, mode, state)
		}
		return nil
	},
}

var alarmRmCmd = &cobra.Command{
	Use:   "rm <alarm-id>",
	Short: "Delete an alarm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Alarms().Delete(cmd.Context(), args[0])
	},
}

func init() {
	flags := alarmAddCmd.Flags()
	flags.String("label", "", "Alarm label")
	flags.Float64("lat", 0, "Latitude")
	flags.Float64("lon", 0, "Longitude")
	flags.Float64("radius", 0, "Radius in meters (default 200)")
	flags.Bool("repeat", false, "Fire on every arrival instead of once")

	alarmCmd.AddCommand(alarmAddCmd)
	alarmCmd.AddCommand(alarmListCmd)
	alarmCmd.AddCommand(alarmRmCmd)
}

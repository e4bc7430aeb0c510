package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/candemir/geopact/internal/challenge"
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Manage challenges",
}

var challengeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new challenge",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		place, _ := flags.GetString("place")
		lat, _ := flags.GetFloat64("lat")
		lon, _ := flags.GetFloat64("lon")
		radius, _ := flags.GetFloat64("radius")
		goal, _ := flags.GetInt("goal")
		weeks, _ := flags.GetInt("weeks")
		repeat, _ := flags.GetBool("repeat")
		minDwell, _ := flags.GetInt("min-dwell")
		chances, _ := flags.GetInt("chances")
		daysFlag, _ := flags.GetString("days")

		var days []challenge.Weekday
		if daysFlag != "" {
			for _, d := range strings.Split(daysFlag, ",") {
				days = append(days, challenge.Weekday(strings.ToUpper(strings.TrimSpace(d))))
			}
		}

		c, err := challenge.New(challenge.Params{
			Name:          name,
			PlaceName:     place,
			Lat:           lat,
			Lon:           lon,
			Radius:        radius,
			WeeklyGoal:    goal,
			Days:          days,
			DurationWeeks: weeks,
			Repeat:        repeat,
			MinDwellMins:  minDwell,
			Chances:       chances,
		}, cfg.Clock().Now())
		if err != nil {
			return err
		}

		if err := st.Challenges().Create(cmd.Context(), c); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.ID)
		return nil
	},
}

var challengeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List challenges",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		challenges, err := st.Challenges().List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range challenges {
			label := c.Name
			if label == "" {
				label = c.PlaceName
			}
			fmt.Fprintf(out, "%s  %-20s week %d/%d  visits %d/%d  combo %d  chances %d  %s\n",
				c.ID, label, c.CurrentWeek, c.DurationWeeks,
				c.WeeklyVisits, c.WeeklyGoal, c.Combo, c.Chances, c.Status)
		}
		return nil
	},
}

var challengeRmCmd = &cobra.Command{
	Use:   "rm <challenge-id>",
	Short: "Delete a challenge and its visit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, eng, _, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Challenges().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		eng.Forget(args[0])
		return nil
	},
}

func init() {
	flags := challengeAddCmd.Flags()
	flags.String("name", "", "Display name")
	flags.String("place", "", "Place name (required)")
	flags.Float64("lat", 0, "Latitude of the geofence center")
	flags.Float64("lon", 0, "Longitude of the geofence center")
	flags.Float64("radius", 0, "Geofence radius in meters (default 200)")
	flags.Int("goal", 3, "Counted visits required per week (1-7)")
	flags.Int("weeks", 4, "Program duration in weeks (1-8)")
	flags.Bool("repeat", false, "Restart at week 1 instead of graduating")
	flags.Int("min-dwell", 0, "Minimum dwell time in minutes (0 = none)")
	flags.Int("chances", 0, "Starting chance balance")
	flags.String("days", "", "Comma-separated day codes, e.g. MON,WED,FRI")

	challengeCmd.AddCommand(challengeAddCmd)
	challengeCmd.AddCommand(challengeListCmd)
	challengeCmd.AddCommand(challengeRmCmd)
}

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/candemir/geopact/internal/alarm"
	"github.com/candemir/geopact/internal/challenge"
	"github.com/candemir/geopact/internal/engine"
	"github.com/candemir/geopact/internal/tracker"
)

// trackSample is the NDJSON line shape the track command consumes.
type trackSample struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

var trackCmd = &cobra.Command{
	Use:   "track [samples.ndjson]",
	Short: "Replay location samples through the dwell tracker",
	Long: "Track reads newline-delimited JSON location samples from a file (or\n" +
		"stdin) and feeds them to the dwell tracker and alarm watcher, printing\n" +
		"session and alarm activity as it happens.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, eng, cfg, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		// Close sessions a previous crash left open before tracking
		// anew, so stale records never block the daily cap.
		if swept, err := eng.RecoverOpenSessions(ctx); err != nil {
			return err
		} else if swept > 0 {
			fmt.Fprintf(out, "recovered %d abandoned session(s)\n", swept)
		}

		all, err := st.Challenges().List(ctx)
		if err != nil {
			return err
		}
		var active []*challenge.Challenge
		for _, c := range all {
			if c.Status == challenge.StatusActive {
				active = append(active, c)
			}
		}

		handler := &engine.SessionHandler{
			Engine: eng,
			OnOutcome: func(challengeID string, o engine.VisitOutcome) {
				fmt.Fprintf(out, "session ended for %s: ", challengeID)
				printVisitOutcome(cmd, o)
			},
		}
		tr := tracker.New(handler, cfg.Clock(), nil, cfg.Tracker())
		defer tr.StopAll()

		watcher := alarm.NewWatcher(st.Alarms(), func(a *alarm.Alarm) {
			fmt.Fprintf(out, "alarm: %s\n", a.Label)
		}, nil)

		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		return replay(cmd, in, tr, watcher, active)
	},
}

func replay(cmd *cobra.Command, in io.Reader, tr *tracker.Tracker, watcher *alarm.Watcher, active []*challenge.Challenge) error {
	scanner := bufio.NewScanner(in)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ts trackSample
		if err := json.Unmarshal(raw, &ts); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: skipping malformed sample: %v\n", line, err)
			continue
		}
		s := tracker.Sample{Lat: ts.Lat, Lon: ts.Lon, Accuracy: ts.Accuracy}

		if err := tr.ProcessSample(cmd.Context(), s, active); err != nil {
			return err
		}
		if err := watcher.ProcessSample(cmd.Context(), s.Point()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

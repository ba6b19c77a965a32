package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/lookgame/internal/log"
	"github.com/teslashibe/lookgame/pkg/sim"
)

var (
	flagSimURL      string
	flagSimHumans   int
	flagSimAccuracy float64
	flagSimReaction time.Duration
	flagSimPace     float64
	flagSimRounds   int
	flagSimSeed     uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Connect a simulated robot and player",
	Long: `Connect to a server as a robot with people in front of it. The
closest person plays, looking the right way with the given accuracy.

Examples:
  lookgame simulate
  lookgame simulate --accuracy 0.5 --rounds 5
  lookgame simulate --url ws://10.0.0.5:8080/ws/robot/sim --humans 3`,
	RunE: runSimulate,
}

func init() {
	defaults := sim.DefaultConfig()
	simulateCmd.Flags().StringVar(&flagSimURL, "url", defaults.URL, "Robot websocket URL")
	simulateCmd.Flags().IntVar(&flagSimHumans, "humans", defaults.Humans, "People in view")
	simulateCmd.Flags().Float64Var(&flagSimAccuracy, "accuracy", defaults.Accuracy, "Chance the player looks the right way")
	simulateCmd.Flags().DurationVar(&flagSimReaction, "reaction", defaults.Reaction, "Player reaction time")
	simulateCmd.Flags().Float64Var(&flagSimPace, "pace", defaults.SpeechPace, "Speech time multiplier")
	simulateCmd.Flags().IntVar(&flagSimRounds, "rounds", 0, "Stop after this many correct looks (0 = forever)")
	simulateCmd.Flags().Uint64Var(&flagSimSeed, "seed", 0, "RNG seed (0 = random based on time)")
}

func runSimulate(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	opts := []sim.Option{
		sim.WithURL(flagSimURL),
		sim.WithHumans(flagSimHumans),
		sim.WithAccuracy(flagSimAccuracy),
		sim.WithReaction(flagSimReaction),
		sim.WithSpeechPace(flagSimPace),
		sim.WithRounds(flagSimRounds),
		sim.WithLogger(log.L()),
	}
	if flagSimSeed != 0 {
		opts = append(opts, sim.WithSeed(flagSimSeed))
	}

	bot := sim.New(opts...)
	err := bot.Run(ctx)

	st := bot.GetStats()
	fmt.Printf("\nlooks %d  wrong %d  matched %d  lines %d  gestures %d  latency %dms\n",
		st.Looks, st.Wrong, st.Matched, st.Spoken, st.Gestures, st.LatencyMs)
	return err
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/lookgame/internal/log"
	"github.com/teslashibe/lookgame/pkg/tui"
)

var flagWatchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running game in the terminal",
	Long: `Connect to a server's phase feed and show the current phase, the
direction to look, what the player did, and the score.

Examples:
  lookgame watch
  lookgame watch --url ws://reachy.local:8080/ws/phase`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchURL, "url", "ws://localhost:8080/ws/phase", "Phase websocket URL")
}

func runWatch(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	// The alternate screen owns the terminal; keep logs out of it.
	feed, err := tui.Remote(ctx, flagWatchURL, log.Discard())
	if err != nil {
		return err
	}
	return tui.Run(ctx, "lookgame · "+flagWatchURL, feed)
}

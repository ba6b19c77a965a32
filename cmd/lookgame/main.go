// lookgame runs the "look where I tell you" game for a Reachy Mini robot.
//
// Usage:
//
//	lookgame serve              - Accept the robot and run the game
//	lookgame watch              - Follow a running game in the terminal
//	lookgame simulate           - Connect a simulated robot and player
//	lookgame script             - Print or check the spoken lines
//
// Configuration comes from the environment (PORT, LOG_LEVEL, ROBOT_IP,
// LOOKGAME_*, provider API keys); flags override it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/lookgame/internal/log"
)

var flagLogLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lookgame",
	Short: "A look-where-I-tell-you game for Reachy Mini",
	Long: `lookgame asks a player to look up, down, left or right and checks
where they actually looked, using the robot's attention tracking or
server-side face detection.

Examples:
  lookgame serve
  lookgame serve --tts elevenlabs --directions all
  lookgame serve --simulate
  lookgame watch --url ws://localhost:8080/ws/phase
  lookgame simulate --accuracy 0.6 --humans 3`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := flagLogLevel
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		log.Init(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(scriptCmd)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/lookgame/pkg/direction"
	"github.com/teslashibe/lookgame/pkg/game"
)

var (
	flagScriptFile  string
	flagScriptCheck bool
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Print or check the spoken lines",
	Long: `Load the script the server would use and print a sample of every
line with directions filled in.

Search order: --file, ~/.lookgame/script.yaml, ./configs/script.yaml,
then the built-in script.

Examples:
  lookgame script
  lookgame script --file my-script.yaml --check`,
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().StringVar(&flagScriptFile, "file", "", "Path to a YAML script")
	scriptCmd.Flags().BoolVar(&flagScriptCheck, "check", false, "Only validate the script")
}

func runScript(cmd *cobra.Command, _ []string) error {
	s, err := game.LoadScript(flagScriptFile)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagScriptCheck {
		fmt.Fprintln(out, "script ok")
		return nil
	}

	for _, p := range samplePhases(s) {
		v := game.Describe(p)
		fmt.Fprintf(out, "%-14s %s\n", v.Name, s.Line(p))
	}
	return nil
}

// samplePhases covers every spoken phase, including one of each mistake line.
func samplePhases(s *game.Script) []game.Phase {
	phases := []game.Phase{
		game.Intro{},
		game.Instructions{Expected: direction.UpLeft},
	}
	for i := range s.NotMatching {
		phases = append(phases, game.NotMatching{
			Expected: direction.Up,
			Observed: direction.Down,
			Errors:   i + 1,
		})
	}
	return append(phases, game.Matching{Matched: direction.Up, Score: 1})
}

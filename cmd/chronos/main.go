// chronos plays a live-coded script through the default audio device,
// re-evaluating it whenever the file is saved, with a REPL for adding
// statements on the fly.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chronos"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:          "chronos [file]",
		Short:        "Live-codable signal processing engine",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			if viper.GetBool(keyNoColor) {
				color.NoColor = true
			}
			return nil
		},
		RunE: runPlay,
	}
	f := root.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default $HOME/.chronos.yaml)")
	f.Int(keySampleRate, chronos.DefaultSampleRate, "sample rate in Hz")
	f.Int(keyArena, chronos.DefaultArenaSize, "arena size in samples")
	f.String(keyLogLevel, "info", "none, error, warn, info or debug")
	f.Bool(keyNoColor, false, "disable coloured output")
	viper.BindPFlags(f)

	addPlayFlags(root)
	play := &cobra.Command{
		Use:   "play [file]",
		Short: "Play a script and watch it for changes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlay,
	}
	addPlayFlags(play)

	root.AddCommand(
		play,
		&cobra.Command{
			Use:   "check file",
			Short: "Compile a script and report errors",
			Args:  cobra.ExactArgs(1),
			RunE:  runCheck,
		},
		newInspectCmd(),
		&cobra.Command{
			Use:   "ops",
			Short: "List operators",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printOperators(cmd.OutOrStdout())
			},
		},
		newRenderCmd(),
	)
	return root
}

func addPlayFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int(keyBuffer, 512, "frames per device write")
	f.Bool("no-watch", false, "do not reload the script when it changes")
	f.Bool("no-repl", false, "do not read statements from stdin")
}

// runCheck compiles without opening a device.
func runCheck(cmd *cobra.Command, args []string) error {
	e, err := compileFile(args[0])
	if err != nil {
		return err
	}
	defer e.Close()
	g := e.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d variables\n", args[0], len(g.Nodes), len(g.Variables))
	return nil
}

// compileFile evaluates a script into a silent engine, for the offline
// commands.
func compileFile(file string) (*chronos.Engine, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	e := chronos.New(viper.GetInt(keySampleRate), chronos.WithArenaSize(viper.GetInt(keyArena)))
	if err := e.EvalErr(string(src), true); err != nil {
		e.Close()
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return e, nil
}

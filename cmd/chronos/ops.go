package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"chronos"
)

// argument names, operators missing here print their arity only
var signatures = map[string]string{
	"const":    "implicit, numeric literals",
	"param":    "implicit, name := expr",
	"add":      "a, b",
	"sub":      "a, b",
	"mul":      "a, b",
	"div":      "a, b",
	"mod":      "a, b",
	"pow":      "base, exp",
	"sine":     "freq",
	"phasor":   "freq",
	"saw":      "freq",
	"pulse":    "freq, width",
	"noise":    "",
	"time":     "",
	"filter":   "in, type (0 lp 1 bp 2 hp), cutoff, q",
	"delay":    "in, seconds, feedback",
	"data":     "values...",
	"zeros":    "length",
	"gt":       "a, b",
	"lt":       "a, b",
	"eq":       "a, b",
	"if":       "cond, then, else",
	"select":   "index, inputs...",
	"mix":      "inputs...",
	"seq":      "data, steps per beat",
	"clock":    "ticks per beat",
	"env":      "trigger, decay",
	"perc":     "trigger, attack, decay",
	"adsr":     "gate, attack, decay, sustain, release",
	"trk_freq": "channel",
	"trk_gate": "channel",
	"trk_vol":  "channel",
}

func arity(o chronos.Operator) string {
	switch {
	case o.Max < 0:
		return fmt.Sprintf("%d+", o.Min)
	case o.Min == o.Max:
		return fmt.Sprint(o.Min)
	}
	return fmt.Sprintf("%d-%d", o.Min, o.Max)
}

func printOperators(w io.Writer) {
	name := color.New(color.FgMagenta)
	args := color.New(color.FgCyan)
	dim := color.New(color.Italic)

	fmt.Fprintf(w, "\n%s\n\n", color.New(color.FgYellow, color.Italic).Sprint("operators"))
	for _, o := range chronos.Operators() {
		sig, ok := signatures[o.Name]
		if !ok {
			sig = arity(o) + " args"
		}
		fmt.Fprintf(w, "\t%s", name.Sprint(o.Name))
		for n := len(o.Name); n < 10; n++ {
			fmt.Fprint(w, " ")
		}
		fmt.Fprintf(w, "%s %s\n", dim.Sprintf("%3d", o.Opcode), args.Sprint(sig))
	}
	fmt.Fprintln(w)
}

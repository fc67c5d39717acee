package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"chronos"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect file",
		Short: "Show the compiled graph of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := compileFile(args[0])
			if err != nil {
				return err
			}
			defer e.Close()
			w := cmd.OutOrStdout()
			g := e.Snapshot()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				b, err := graphJSON(g)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(b))
				return nil
			}
			printVariables(w, g)
			printNodes(w, g)
			seen := map[uint8]bool{}
			for _, p := range e.Order() {
				if !seen[p] {
					printPattern(w, e, int(p))
					seen[p] = true
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print the graph as JSON")
	return cmd
}

func graphJSON(g chronos.Graph) ([]byte, error) {
	if color.NoColor {
		return json.MarshalIndent(g, "", "  ")
	}
	return prettyjson.Marshal(g)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetBorder(false)
	return t
}

func printVariables(w io.Writer, g chronos.Graph) {
	t := newTable(w, "variable", "node", "op")
	for _, v := range g.Variables {
		op := "?"
		if int(v.Node) < len(g.Nodes) {
			op = g.Nodes[v.Node].Op
		}
		t.Append([]string{v.Name, strconv.Itoa(int(v.Node)), op})
	}
	t.Render()
	if len(g.Macros) > 0 {
		fmt.Fprintf(w, "macros: %s\n", strings.Join(g.Macros, ", "))
	}
}

func printNodes(w io.Writer, g chronos.Graph) {
	role := map[chronos.NodeID]string{}
	if g.BPM != chronos.NoNode {
		role[g.BPM] = "bpm"
	}
	for ch, id := range g.Outputs {
		if id != chronos.NoNode {
			role[id] = strings.TrimPrefix(role[id]+" out"+strconv.Itoa(ch), " ")
		}
	}
	t := newTable(w, "step", "node", "op", "inputs", "value", "")
	for step, id := range g.Order {
		n := g.Nodes[id]
		in := make([]string, len(n.Inputs))
		for i, x := range n.Inputs {
			in[i] = strconv.Itoa(int(x))
		}
		value := ""
		switch {
		case n.Op == "const":
			value = strconv.FormatFloat(n.Const, 'g', -1, 64)
		case n.Buffer > 0:
			value = fmt.Sprintf("[%d]", n.Buffer)
		}
		t.Append([]string{strconv.Itoa(step), strconv.Itoa(int(id)), n.Op, strings.Join(in, " "), value, role[id]})
	}
	t.Render()
	fmt.Fprintf(w, "%d nodes, %d executed per sample\n", len(g.Nodes), len(g.Order))
}

// printPattern lists the non-empty rows of pattern p.
func printPattern(w io.Writer, e *chronos.Engine, p int) {
	header := []string{"row"}
	for ch := 0; ch < chronos.TrackChannels; ch++ {
		header = append(header, strconv.Itoa(ch))
	}
	fmt.Fprintf(w, "pattern %d\n", p)
	t := newTable(w, header...)
	for r := 0; r < chronos.TrackRows; r++ {
		row := []string{fmt.Sprintf("%02X", r)}
		used := false
		for ch := 0; ch < chronos.TrackChannels; ch++ {
			c, _ := e.Cell(p, r, ch)
			used = used || c != chronos.Cell{}
			row = append(row, c.String())
		}
		if used {
			t.Append(row)
		}
	}
	t.Render()
}

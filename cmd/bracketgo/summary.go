package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/cjeanneret/BracketGo/internal/logic/sequence"
)

func printSummary(w io.Writer, rep *sequence.Report) {
	if rep == nil {
		return
	}

	fmt.Fprintln(w, bold("Scene %d", rep.Scene))
	fmt.Fprintf(w, "  Stem: %s\n", bold("%s", rep.Stem))
	fmt.Fprintf(w, "  Parameters applied: %s\n", ok2Text(rep.ConfigErr == nil))

	for _, rr := range rep.Rounds {
		var state string
		switch {
		case rr.Skipped:
			state = color.YellowString("skipped")
		case rr.Err != nil:
			state = color.RedString("failed: %v", rr.Err)
		default:
			state = color.GreenString("%d files", len(rr.Files))
		}
		fmt.Fprintf(w, "  %s %s: %s\n", ok2Text(rr.OK()), rr.Bracket.Label(), state)
	}

	if rep.NextScene > 0 {
		fmt.Fprintf(w, "  Next scene: %s\n", bold("%d", rep.NextScene))
	}
}

func ok2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

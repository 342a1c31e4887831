package cmd

import "github.com/fatih/color"

// Terminal styles for CLI output. fatih/color disables them automatically
// when stdout is not a terminal or NO_COLOR is set.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/giantswarm/corealloc"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

func colorPrintLn(c *color.Color, a ...any) {
	_, _ = c.Println(a...)
}

func colorPrintf(c *color.Color, format string, a ...any) {
	_, _ = c.Printf(format, a...)
}

// formatCores renders core ids as a space-separated list.
func formatCores(cores []corealloc.CoreIndex) string {
	if cores == nil {
		return "any"
	}
	parts := make([]string, len(cores))
	for i, c := range cores {
		parts[i] = fmt.Sprint(int(c))
	}
	return strings.Join(parts, " ")
}

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// formatter renders with color when possible and plain text otherwise.
type formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func (f formatter) Sprint(a ...any) string {
	text := fmt.Sprint(a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

func noColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return color.NoColor
}

var (
	successText   = formatter{color.New(color.FgGreen), "", ""}
	errorText     = formatter{color.New(color.FgRed), "", ""}
	highlightText = formatter{color.New(color.FgCyan), "'", "'"}
	mutedText     = formatter{color.New(color.Faint), "(", ")"}
	pathText      = formatter{color.New(color.FgYellow), "", ""}
)

// startSpinner shows progress on interactive terminals. The returned stop
// function prints final, if any, and is safe to call when no spinner runs.
func (a *App) startSpinner(message string) func(final string) {
	if !a.interactive() || a.debug {
		return func(final string) {
			if final != "" {
				fmt.Fprintln(a.out, final)
			}
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.out))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()

	return func(final string) {
		s.Stop()
		if final != "" {
			fmt.Fprintln(a.out, final)
		}
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorText.Sprint("✗"), err)
}

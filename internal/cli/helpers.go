package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// GlobalFlags are the persistent flags shared by every command
type GlobalFlags struct {
	Quiet       bool
	NoColor     bool
	SkipConfirm bool
	Server      string
	Output      string
}

var (
	flags GlobalFlags

	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetGlobalFlags sets the global flag values from the cmd package
func SetGlobalFlags(f GlobalFlags) {
	if f.Output == "" {
		f.Output = string(FormatText)
	}
	flags = f
}

// Flags returns the current global flag values
func Flags() GlobalFlags {
	return flags
}

// SetIO redirects prompts and printers, for tests. Nil keeps the current
// stream.
func SetIO(in io.Reader, out, errOut io.Writer) {
	if in != nil {
		stdin = in
	}
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// Stdout returns the writer command output goes to
func Stdout() io.Writer {
	return stdout
}

// Confirm prompts the user for confirmation
func Confirm(prompt string, defaultYes bool) (bool, error) {
	if flags.SkipConfirm {
		return true, nil
	}

	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}
	fmt.Fprint(stdout, prompt+suffix)

	response, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && response == "" {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	if response == "" {
		return defaultYes, nil
	}
	return response == "y" || response == "yes", nil
}

func printTagged(w io.Writer, symbol, word, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if flags.NoColor {
		fmt.Fprintf(w, "%s: %s\n", word, msg)
		return
	}
	fmt.Fprintf(w, "%s %s\n", symbol, msg)
}

// PrintSuccess prints a success message unless quiet mode is enabled
func PrintSuccess(format string, args ...interface{}) {
	if !flags.Quiet {
		printTagged(stdout, "✓", "OK", format, args...)
	}
}

// PrintInfo prints an info message unless quiet mode is enabled
func PrintInfo(format string, args ...interface{}) {
	if !flags.Quiet {
		printTagged(stdout, "ℹ", "INFO", format, args...)
	}
}

// PrintWarning prints a warning message to stderr
func PrintWarning(format string, args ...interface{}) {
	printTagged(stderr, "⚠", "WARNING", format, args...)
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...interface{}) {
	printTagged(stderr, "✗", "ERROR", format, args...)
}

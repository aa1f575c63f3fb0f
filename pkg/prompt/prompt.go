// Package prompt implements the interactive gate in front of destructive
// operations.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Tokens accepted as approval, case-insensitive. The cyrillic forms match
// the russian-locale hosts this tool is typically run on.
var yesTokens = map[string]bool{
	"y":   true,
	"yes": true,
	"д":   true,
	"да":  true,
}

// Confirmer asks the operator to approve a destructive operation before it
// runs. With skip set, every call approves without prompting; that covers
// both confirm_destructive_operations=false and the --yes flag.
type Confirmer struct {
	in   *bufio.Reader
	out  io.Writer
	skip bool
}

// New returns a Confirmer reading answers from stdin.
func New(skip bool) *Confirmer {
	return NewWithStreams(os.Stdin, os.Stdout, skip)
}

// NewWithStreams returns a Confirmer bound to the given streams.
func NewWithStreams(in io.Reader, out io.Writer, skip bool) *Confirmer {
	return &Confirmer{
		in:   bufio.NewReader(in),
		out:  out,
		skip: skip,
	}
}

// Confirm prints the operation description and reads a y/N answer. Anything
// that is not an explicit yes declines, including a closed stdin.
func (c *Confirmer) Confirm(description string) bool {
	if c.skip {
		return true
	}

	fmt.Fprintf(c.out, "\nWARNING: %s\n", description)
	fmt.Fprint(c.out, "Continue? (y/N): ")

	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	return yesTokens[strings.ToLower(strings.TrimSpace(line))]
}

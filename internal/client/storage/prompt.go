package storage

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks for missing values on an interactive terminal.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. An empty answer or a
// closed input returns def.
func (p *Prompter) Ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	if !p.scanner.Scan() {
		return def
	}
	if v := strings.TrimSpace(p.scanner.Text()); v != "" {
		return v
	}
	return def
}

// Fill asks for value when it is empty and returns the result.
func (p *Prompter) Fill(value, label string) string {
	if value != "" {
		return value
	}
	return p.Ask(label, "")
}

// Confirm asks a yes/no question; only "y" and "yes" count as yes.
func (p *Prompter) Confirm(label string) bool {
	switch strings.ToLower(p.Ask(label+" (y/N)", "")) {
	case "y", "yes":
		return true
	}
	return false
}

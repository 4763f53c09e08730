package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/report"
)

var errExit = errors.New("exit requested")

// entry is one menu line.
type entry struct {
	key   string
	label string
	run   func(ctx context.Context, m *Menu, res analysis.Result) error
}

var entries = []entry{
	{"1", "School specific report", func(ctx context.Context, m *Menu, res analysis.Result) error {
		return m.schoolReport(ctx, res)
	}},
	{"2", "Economic disadvantage relationship analysis", func(_ context.Context, m *Menu, res analysis.Result) error {
		m.console.EconomicRelationship(res)
		return nil
	}},
	{"3", "All schools summary", func(_ context.Context, m *Menu, res analysis.Result) error {
		m.console.AllSchools(res)
		return nil
	}},
	{"4", "View county-wide statistics", func(_ context.Context, m *Menu, res analysis.Result) error {
		m.console.CountyStatistics(res)
		return nil
	}},
	{"5", "View risk categories", func(_ context.Context, m *Menu, res analysis.Result) error {
		m.console.RiskCategories(res)
		return nil
	}},
	{"6", "View recommendations", func(_ context.Context, m *Menu, res analysis.Result) error {
		m.console.Recommendations(res)
		return nil
	}},
	{"7", "Exit interactive mode", func(context.Context, *Menu, analysis.Result) error { return errExit }},
}

// Menu is the interactive loop over the current analysis.
type Menu struct {
	in      *bufio.Scanner
	console *report.Console
	current func() analysis.Result

	lines   chan string
	readErr error // set before lines is closed
}

// New creates a Menu reading from in. current is called for every choice
// so a reload in watch mode is picked up by the next command.
func New(in io.Reader, console *report.Console, current func() analysis.Result) *Menu {
	return &Menu{
		in:      bufio.NewScanner(in),
		console: console,
		current: current,
	}
}

// Run shows the menu until the user exits, input ends, or ctx is cancelled.
// Cancelling ctx returns immediately even while a prompt is waiting for
// input. Run returns an error only when reading input fails.
func (m *Menu) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	m.lines = make(chan string)
	go m.read(done)

	w := m.console.Writer()
	for {
		if ctx.Err() != nil {
			return nil
		}

		m.display()
		choice, ok := m.prompt(ctx, fmt.Sprintf("\nEnter your choice (1-%d): ", len(entries)))
		if !ok {
			return m.stopErr(ctx)
		}

		if err := m.handle(ctx, choice); err != nil {
			switch {
			case errors.Is(err, errExit):
				fmt.Fprintln(w, "Exiting interactive mode...")
				return nil
			case errors.Is(err, io.EOF):
				return m.stopErr(ctx)
			default:
				m.console.Error("Error: %v", err)
			}
		}

		if _, ok := m.prompt(ctx, "\nPress Enter to continue..."); !ok {
			return m.stopErr(ctx)
		}
	}
}

// read feeds input lines to prompt until input ends or done is closed. A
// read blocked on the underlying reader outlives Run; for stdin that lasts
// until the process exits.
func (m *Menu) read(done <-chan struct{}) {
	defer close(m.lines)
	for m.in.Scan() {
		select {
		case m.lines <- m.in.Text():
		case <-done:
			return
		}
	}
	m.readErr = m.in.Err()
}

// stopErr is Run's result once a prompt got no line.
func (m *Menu) stopErr(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	return m.readErr
}

func (m *Menu) display() {
	w := m.console.Writer()
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	m.console.Heading("SLO COUNTY OBESITY ANALYSIS MENU")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	for _, e := range entries {
		fmt.Fprintf(w, "%s. %s\n", e.key, e.label)
	}
}

func (m *Menu) handle(ctx context.Context, choice string) error {
	for _, e := range entries {
		if e.key == choice {
			return e.run(ctx, m, m.current())
		}
	}
	return fmt.Errorf("invalid choice %q. Please enter 1-%d", choice, len(entries))
}

func (m *Menu) schoolReport(ctx context.Context, res analysis.Result) error {
	w := m.console.Writer()
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	m.console.Heading("INDIVIDUAL SCHOOL REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	name, ok := m.prompt(ctx, "Enter school name: ")
	if !ok {
		return io.EOF
	}
	m.console.SchoolReport(res, name)
	return nil
}

// prompt writes text and reads one trimmed line. It returns false at end of
// input or when ctx is cancelled.
func (m *Menu) prompt(ctx context.Context, text string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	fmt.Fprint(m.console.Writer(), text)
	select {
	case line, ok := <-m.lines:
		if !ok {
			fmt.Fprintln(m.console.Writer())
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-ctx.Done():
		fmt.Fprintln(m.console.Writer())
		return "", false
	}
}

// Package main provides UI utilities for the shopping assistant CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// UI provides user-friendly terminal output.
type UI struct {
	noColor bool
}

// NewUI creates a new UI instance.
func NewUI(noColor bool) *UI {
	return &UI{noColor: noColor}
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	if ui.noColor {
		fmt.Printf("✓ %s\n", fmt.Sprintf(format, args...))
		return
	}
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message to stderr.
func (ui *UI) Error(format string, args ...interface{}) {
	if ui.noColor {
		fmt.Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
		return
	}
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an informational message.
func (ui *UI) Info(format string, args ...interface{}) {
	if ui.noColor {
		fmt.Printf("%s\n", fmt.Sprintf(format, args...))
		return
	}
	color.New(color.FgCyan).Printf("%s\n", fmt.Sprintf(format, args...))
}

// Assistant prints an assistant reply.
func (ui *UI) Assistant(text string) {
	if ui.noColor {
		fmt.Printf("assistant> %s\n", text)
		return
	}
	color.New(color.FgYellow, color.Bold).Print("assistant> ")
	fmt.Println(text)
}

// Product prints one verified product line.
func (ui *UI) Product(index int, name, category, priceText string) {
	if ui.noColor {
		fmt.Printf("  %d. %s (%s) %s\n", index, name, category, priceText)
		return
	}
	fmt.Printf("  %d. %s (%s) %s\n",
		index,
		color.New(color.Bold).Sprint(name),
		category,
		color.New(color.FgGreen).Sprint(priceText),
	)
}

// Spinner wraps a spinner for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates and starts a spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	s.Start()
	return &Spinner{spinner: s}
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// NewProgressBar creates a progress bar for deterministic progress display.
func NewProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}

// Package menu implements the interactive text menu. It reads choices line
// by line from any io.Reader and renders through a report.Console, so it runs
// the same against a terminal or a test buffer. End of input exits the menu.
package menu

// Package report renders an analysis.Result for people and for machines.
//
// console.go writes the colourised console views used by the summary and
// the interactive menu (tables via tablewriter, headings via fatih/color).
// text.go writes the plain-text report file.
// metrics.go exposes the aggregates as Prometheus gauges in text
// exposition format.
//
// Nothing here computes: every number printed comes straight from the
// Result so all outputs agree.
package report

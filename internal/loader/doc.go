// Package loader reads the school metrics file and turns each line into a
// school.School.
//
// The file is comma-delimited with one header line:
//
//	name,obesity_rate,economic_disadvantage_rate,students_tested,year
//
// Lines with the wrong number of fields or a non-numeric value are skipped
// and reported as Warnings; they never abort the load. Blank lines are
// ignored. Watch reloads the file whenever it changes on disk.
package loader

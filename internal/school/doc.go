// Package school defines the School record: one school's raw health metrics
// and the calculations derived from them.
//
// A School is a value type. New parses the raw text fields of one input line
// and returns a *ConversionError when a numeric field cannot be parsed.
//
// Risk bands by obesity rate:
//
//	rate <  30        Low
//	30 <= rate <  35  Moderate
//	35 <= rate <= 40  High
//	rate >  40        Critical
package school

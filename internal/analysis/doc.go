// Package analysis derives county-level aggregates from a collection of
// school records.
//
// Every function is a pure function of the slice it is given: nothing is
// cached and the input is never reordered, so calling any of them twice on
// the same collection yields identical results.
//
// statistics.go computes county-wide summary statistics (unweighted means).
// risk.go partitions schools into the four risk bands.
// disparity.go compares high- and low-disadvantage sub-populations.
// ranking.go returns the highest and lowest obesity schools (stable order).
// recommend.go turns the aggregates into narrative recommendations.
// analyze.go bundles all of the above into one Result.
package analysis

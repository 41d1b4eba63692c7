// Package dataset loads labelled tabular data (CSV files or zip archives that
// contain one) into dense feature matrices used for model training.
package dataset

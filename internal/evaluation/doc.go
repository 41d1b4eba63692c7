// Package evaluation scores binary predictions and splits labelled rows into stratified
// cross-validation folds.
package evaluation

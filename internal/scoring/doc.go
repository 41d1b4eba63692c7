// Package scoring measures the engineering practices of a cloned repository: commit cadence,
// contributor concentration, issue activity, comment density, infrastructure-code share and
// size. The scores select a matching pre-trained defect model.
package scoring

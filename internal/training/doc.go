// Package training cross-validates every balancer, normalizer and classifier combination on a
// labelled dataset, refits the best pipeline on all rows and writes it to a model directory.
package training

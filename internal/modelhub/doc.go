// Package modelhub downloads pre-trained defect models matching a repository's scores and
// provides the model command group.
package modelhub

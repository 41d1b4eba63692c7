// Package preprocess implements the class balancing and feature scaling steps applied to training
// partitions before a classifier is fitted.
package preprocess

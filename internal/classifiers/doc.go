// Package classifiers provides the binary classifiers evaluated by the training grid: a CART
// decision tree, logistic regression, Gaussian naive Bayes, a random forest and a linear SVM.
//
// Every classifier keeps its fitted state in exported fields so a trained model can be encoded as
// JSON or CBOR and restored without refitting.
package classifiers

// Package main trains a Bernoulli RBM on the MNIST digits, reporting
// reconstruction error, pseudo-log-likelihood and the free energy gap
// between the training and validation images after every epoch.
package main

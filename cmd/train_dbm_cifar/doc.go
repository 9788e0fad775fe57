// Package main trains a Gaussian-Bernoulli-Multinomial DBM on CIFAR-10,
// augmented tenfold with one pixel shifts and horizontal mirroring. The
// Gaussian RBM is initialized from 26 small RBMs trained on 8x8 patches, as
// in Krizhevsky's "Learning multiple layers of features from tiny images".
package main

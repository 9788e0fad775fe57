// Package trainer runs the epoch loop shared by RBMs and DBMs: mini-batch
// iteration, periodic reconstruction and likelihood metrics, the free energy
// gap used to detect overfitting, checkpointing and resuming.
package trainer

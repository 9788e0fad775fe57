package trainer

import "gonum.org/v1/gonum/mat"

// Model is what Fit trains.
type Model interface {
	BatchSize() int
	MaxEpoch() int
	Epoch() int

	// Iter is the number of mini-batch updates done so far, across resumes.
	Iter() int

	// NextEpoch advances the epoch counter and returns the new epoch, counted from 1.
	NextEpoch() int

	// TrainBatch performs one update and returns the batch reconstruction error.
	TrainBatch(x *mat.Dense) float64

	// MSRE is the mean squared reconstruction error of x without updating.
	MSRE(x *mat.Dense) float64
}

// PseudoLikelihooder is implemented by models with a tractable pseudo-log-likelihood.
type PseudoLikelihooder interface {
	PseudoLogLikelihood(x *mat.Dense) (float64, error)
}

// FreeEnergier is implemented by models with a tractable free energy.
type FreeEnergier interface {
	MeanFreeEnergy(x *mat.Dense) float64
}

// Saver writes a model checkpoint into a directory.
type Saver interface {
	Save(dir string) error
}

// Loader replaces a model with the checkpoint stored in a directory.
type Loader interface {
	Load(dir string) error
}

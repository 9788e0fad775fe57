package layer

import "strings"

import "github.com/pkg/errors"

// Spec is the serializable description of a unit type.
type Spec struct {
	Type    string  `json:"type" yaml:"type"`
	Sigma   float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`
	Samples int     `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// Units builds the unit type s describes. An empty type means Bernoulli.
func (s Spec) Units() (Units, error) {
	switch strings.ToLower(s.Type) {
	case "", "bernoulli", "binary":
		return Bernoulli{}, nil
	case "gaussian":
		return Gaussian{StdDev: s.Sigma}, nil
	case "multinomial", "softmax":
		return Multinomial{Samples: s.Samples}, nil
	}
	return nil, errors.Errorf("unknown unit type %q", s.Type)
}

// SpecOf describes u so that it can be written to a checkpoint or config.
func SpecOf(u Units) Spec {
	switch v := u.(type) {
	case Gaussian:
		return Spec{Type: v.String(), Sigma: v.Sigma()}
	case Multinomial:
		return Spec{Type: v.String(), Samples: v.draws()}
	case nil:
		return Spec{Type: Bernoulli{}.String()}
	}
	return Spec{Type: u.String()}
}

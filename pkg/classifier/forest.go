package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// artifactSchema validates the serialized model document before any
// node is trusted. Structural errors in the artifact are configuration
// errors, raised before data is touched.
const artifactSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["model_type", "version", "n_classes", "features", "trees"],
  "properties": {
    "model_type": {"const": "tree_ensemble"},
    "version": {"type": "integer", "minimum": 1},
    "n_classes": {"type": "integer", "minimum": 2},
    "features": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string"}
    },
    "trees": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["nodes"],
        "properties": {
          "nodes": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "properties": {
                "leaf": {"type": "boolean"},
                "feature": {"type": "integer", "minimum": 0},
                "threshold": {"type": "number"},
                "left": {"type": "integer", "minimum": 0},
                "right": {"type": "integer", "minimum": 0},
                "classes": {
                  "type": "array",
                  "items": {"type": "number", "minimum": 0}
                }
              }
            }
          }
        }
      }
    }
  }
}`

type node struct {
	Leaf      bool      `json:"leaf,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Classes   []float64 `json:"classes,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

type artifact struct {
	ModelType string   `json:"model_type"`
	Version   int      `json:"version"`
	NClasses  int      `json:"n_classes"`
	Features  []string `json:"features"`
	Trees     []tree   `json:"trees"`
}

// Forest is an averaged ensemble of decision trees. The per-row class
// distribution is the mean of the normalized leaf distributions across
// trees, matching how the training framework estimates probabilities.
type Forest struct {
	features []string
	nClasses int
	trees    []tree
}

// Load reads, schema-validates and decodes a model artifact. The
// returned Forest is immutable.
func Load(path string) (*Forest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://timetoshop.schemas.local/model_artifact.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(artifactSchema)); err != nil {
		return nil, fmt.Errorf("load artifact schema: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("model artifact invalid: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	f := &Forest{
		features: art.Features,
		nClasses: art.NClasses,
		trees:    art.Trees,
	}
	if err := f.check(); err != nil {
		return nil, fmt.Errorf("model artifact invalid: %w", err)
	}
	return f, nil
}

// check verifies node references the schema alone cannot express.
func (f *Forest) check() error {
	for ti, tr := range f.trees {
		for ni, n := range tr.Nodes {
			if n.Leaf {
				if len(n.Classes) != f.nClasses {
					return fmt.Errorf("tree %d node %d: leaf has %d classes, want %d", ti, ni, len(n.Classes), f.nClasses)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(f.features) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Left >= len(tr.Nodes) || n.Right <= ni || n.Right >= len(tr.Nodes) {
				return fmt.Errorf("tree %d node %d: child reference out of range", ti, ni)
			}
		}
	}
	return nil
}

// Features returns the feature names in the order the model expects.
func (f *Forest) Features() []string {
	return append([]string(nil), f.features...)
}

// PredictProba implements Classifier.
func (f *Forest) PredictProba(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != len(f.features) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(x), len(f.features))
		}
		acc := make([]float64, f.nClasses)
		for _, tr := range f.trees {
			dist, err := tr.leafDistribution(x)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			for c, p := range dist {
				acc[c] += p
			}
		}
		for c := range acc {
			acc[c] /= float64(len(f.trees))
		}
		out[i] = acc
	}
	return out, nil
}

// PredictClass implements Classifier: argmax over the class mass.
func (f *Forest) PredictClass(X [][]float64) ([]int, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, dist := range proba {
		best := 0
		for c := 1; c < len(dist); c++ {
			if dist[c] > dist[best] {
				best = c
			}
		}
		out[i] = best
	}
	return out, nil
}

// leafDistribution walks the tree for one feature vector and returns
// the normalized class distribution at the reached leaf. Leaves may
// carry raw sample counts; normalization happens here.
func (t tree) leafDistribution(x []float64) ([]float64, error) {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[i]
		if n.Leaf {
			total := 0.0
			for _, v := range n.Classes {
				total += v
			}
			dist := make([]float64, len(n.Classes))
			if total > 0 {
				for c, v := range n.Classes {
					dist[c] = v / total
				}
			}
			return dist, nil
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return nil, fmt.Errorf("tree traversal did not reach a leaf")
}

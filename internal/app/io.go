package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// tensorJSON is the on-disk and printed form of a tensor.
type tensorJSON struct {
	Name  string    `json:"name,omitempty"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// readInputs decodes a JSON list of tensors from path.
func readInputs(path string) ([]*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var raw []tensorJSON
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode input file %s: %w", path, err)
	}
	out := make([]*tensor.Tensor, len(raw))
	for i, r := range raw {
		t, err := tensor.New(tensor.Shape(r.Shape), r.Data)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// onesFor returns one tensor of ones per port, with Unknown dimensions set
// to batch.
func onesFor(ports unit.Ports, batch int) []*tensor.Tensor {
	out := make([]*tensor.Tensor, ports.Len())
	for i, u := range ports.Units() {
		shape := u.OutShape()
		for j, d := range shape {
			if d == tensor.Unknown {
				shape[j] = batch
			}
		}
		out[i] = tensor.Ones(shape)
	}
	return out
}

// asValue shapes tensors like the ports they feed.
func asValue(ports unit.Ports, ts []*tensor.Tensor) unit.Value {
	if !ports.IsList() && len(ts) == 1 {
		return unit.Single(ts[0])
	}
	return unit.List(ts...)
}

func writeOutputs(w io.Writer, ports unit.Ports, v unit.Value) error {
	names := ports.Names()
	out := make([]tensorJSON, v.Len())
	for i, t := range v.Tensors() {
		out[i] = tensorJSON{Shape: t.Shape(), Data: t.Data()}
		if i < len(names) {
			out[i].Name = names[i]
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

package planner

import (
	"fmt"
	"reflect"

	"github.com/marcvidal/datapilot/pkg/frame"
)

// maxTextArtifact caps stored text payloads. Truncation is silent, not an
// error; it bounds memory and display cost.
const maxTextArtifact = 4096

// previewRows bounds the tabular preview carried in a dataframe artifact.
const previewRows = 20

// Override lets a specific tool determine its own normalized shape,
// bypassing the kind dispatch entirely.
type Override func(raw interface{}) (Observation, *Artifact)

// Normalizer converts arbitrary tool return values into a uniform
// (Observation, Artifact) pair. It is the single chokepoint guaranteeing
// every step yields a trace-safe summary regardless of the tool's shape.
type Normalizer struct {
	overrides map[string]Override
}

// NewNormalizer creates a normalizer with no per-tool overrides.
func NewNormalizer() *Normalizer {
	return &Normalizer{overrides: make(map[string]Override)}
}

// RegisterOverride installs a per-tool adapter. First match wins over the
// kind dispatch.
func (n *Normalizer) RegisterOverride(tool string, fn Override) {
	n.overrides[tool] = fn
}

// Normalize produces the observation and artifact for one successful tool
// return value. Dispatch order: per-tool override, tabular, structured,
// text, scalar, unknown. The fallback never fails.
func (n *Normalizer) Normalize(tool string, raw interface{}) (Observation, *Artifact) {
	if fn, ok := n.overrides[tool]; ok {
		obs, art := fn(raw)
		obs.Tool = tool
		obs.Status = StatusOK
		return obs, art
	}

	switch v := raw.(type) {
	case *frame.Frame:
		return normalizeFrame(tool, v)
	case string:
		return normalizeText(tool, v)
	case []byte:
		return normalizeText(tool, string(v))
	case nil:
		return Observation{Tool: tool, Status: StatusOK, Kind: KindScalar}, &Artifact{Kind: KindScalar}
	case bool, int, int64, float64:
		return Observation{Tool: tool, Status: StatusOK, Kind: KindScalar, Value: v},
			&Artifact{Kind: KindScalar, Value: v}
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return Observation{Tool: tool, Status: StatusOK, Kind: KindJSON, Count: rv.Len()},
			&Artifact{Kind: KindJSON, Raw: raw, Value: raw}
	}

	// Best-effort fallback for shapes nothing above understood.
	return Observation{Tool: tool, Status: StatusOK, Kind: KindUnknown},
		&Artifact{Kind: KindUnknown, Text: fmt.Sprintf("%v", raw)}
}

func normalizeFrame(tool string, f *frame.Frame) (Observation, *Artifact) {
	obs := Observation{
		Tool:   tool,
		Status: StatusOK,
		Kind:   KindDataFrame,
		Shape:  []int{f.NumRows(), f.NumCols()},
	}
	// The artifact owns its copy of the dataset; a tool holding on to the
	// frame it returned cannot reach into a recorded result.
	art := &Artifact{
		Kind:    KindDataFrame,
		Frame:   f.Copy(),
		Columns: f.Columns(),
		Preview: f.Head(previewRows).Records(),
	}
	return obs, art
}

func normalizeText(tool, s string) (Observation, *Artifact) {
	obs := Observation{Tool: tool, Status: StatusOK, Kind: KindText, Length: len(s)}
	art := &Artifact{Kind: KindText, Text: s}
	if len(s) > maxTextArtifact {
		art.Text = s[:maxTextArtifact]
		art.Truncated = true
	}
	return obs, art
}

// CodeOverride builds the override used for code-generation tools whose
// raw output is a mapping with a "code" field.
func CodeOverride() Override {
	return func(raw interface{}) (Observation, *Artifact) {
		code := ""
		if m, ok := raw.(map[string]interface{}); ok {
			if c, ok := m["code"].(string); ok {
				code = c
			}
		}
		obs := Observation{Kind: KindCode, Length: len(code)}
		art := &Artifact{Kind: KindCode, Code: code, Raw: raw}
		return obs, art
	}
}

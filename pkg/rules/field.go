package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aether-health/focus-engine/pkg/textnorm"
)

// Kind tags the shape of one patient-data item. The same logical intake
// field can arrive as free text, a categorical answer, a number, a boolean,
// a multi-select list, or a small structured group; each shape has an
// explicit parser and out-of-contract shapes are rejected up front instead
// of being guessed at inside rules.
type Kind int

const (
	KindText Kind = iota
	KindCategorical
	KindNumeric
	KindBool
	KindList
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCategorical:
		return "categorical"
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// FieldInput is one patient-data item, tagged with its shape. Raw always
// preserves the original text form for safety scanning and provenance
// snippets; Text holds the normalized form used for matching.
type FieldInput struct {
	Topic string
	Kind  Kind

	Text     string
	Raw      string
	Category string
	Number   float64
	Flag     bool
	Values   []string
	Fields   map[string]string
}

// ErrUnsupportedShape marks input whose Go type has no declared parser.
var ErrUnsupportedShape = fmt.Errorf("unsupported field shape")

// ParseField converts a raw intake value into a tagged FieldInput.
// Supported shapes: string, numeric (int/float), bool, []string/[]any of
// strings, and map[string]any with scalar values. Anything else is an
// ErrUnsupportedShape, which callers surface as a validation warning.
func ParseField(topic string, raw any) (FieldInput, error) {
	switch v := raw.(type) {
	case nil:
		return FieldInput{}, fmt.Errorf("%w: nil value for topic %q", ErrUnsupportedShape, topic)
	case string:
		norm := textnorm.Normalize(v)
		return FieldInput{
			Topic:    topic,
			Kind:     KindText,
			Text:     norm,
			Raw:      v,
			Category: norm,
		}, nil
	case bool:
		return FieldInput{Topic: topic, Kind: KindBool, Flag: v, Raw: fmt.Sprintf("%v", v)}, nil
	case int:
		return numericField(topic, float64(v)), nil
	case int64:
		return numericField(topic, float64(v)), nil
	case float32:
		return numericField(topic, float64(v)), nil
	case float64:
		return numericField(topic, v), nil
	case []string:
		return listField(topic, v), nil
	case []any:
		vals := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return FieldInput{}, fmt.Errorf("%w: non-string list item for topic %q", ErrUnsupportedShape, topic)
			}
			vals = append(vals, s)
		}
		return listField(topic, vals), nil
	case map[string]any:
		fields := make(map[string]string, len(v))
		var parts []string
		for key, item := range v {
			switch s := item.(type) {
			case string:
				fields[key] = s
				parts = append(parts, s)
			case float64:
				fields[key] = fmt.Sprintf("%g", s)
			case int:
				fields[key] = fmt.Sprintf("%d", s)
			case bool:
				fields[key] = fmt.Sprintf("%v", s)
			default:
				return FieldInput{}, fmt.Errorf("%w: nested value for key %q in topic %q", ErrUnsupportedShape, key, topic)
			}
		}
		raw := strings.Join(parts, "; ")
		return FieldInput{
			Topic:  topic,
			Kind:   KindStructured,
			Fields: fields,
			Raw:    raw,
			Text:   textnorm.Normalize(raw),
		}, nil
	default:
		return FieldInput{}, fmt.Errorf("%w: %T for topic %q", ErrUnsupportedShape, raw, topic)
	}
}

func numericField(topic string, n float64) FieldInput {
	return FieldInput{Topic: topic, Kind: KindNumeric, Number: n, Raw: fmt.Sprintf("%g", n)}
}

func listField(topic string, vals []string) FieldInput {
	joined := strings.Join(vals, "; ")
	norm := make([]string, len(vals))
	for i, v := range vals {
		norm[i] = textnorm.Normalize(v)
	}
	return FieldInput{
		Topic:  topic,
		Kind:   KindList,
		Values: norm,
		Raw:    joined,
		Text:   textnorm.Normalize(joined),
	}
}

var numericPrefixRe = regexp.MustCompile(`^\s*([-+]?\d+(?:\.\d+)?)`)

// ParseNumericPrefix extracts the leading number from a unit-suffixed
// biomarker reading such as "5.7 %" or "98 mg/dL".
func ParseNumericPrefix(s string) (float64, bool) {
	m := numericPrefixRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	var value float64
	if _, err := fmt.Sscanf(m[1], "%f", &value); err != nil {
		return 0, false
	}
	return value, true
}

// Snippet returns a short display form of the field for provenance records,
// truncated on a rune boundary.
func (f FieldInput) Snippet() string {
	s := f.Raw
	if s == "" {
		s = f.Text
	}
	if len(s) <= 80 {
		return s
	}
	runes := []rune(s)
	if len(runes) > 80 {
		runes = runes[:80]
	}
	return string(runes)
}

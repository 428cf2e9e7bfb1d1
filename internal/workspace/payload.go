package workspace

import (
	"encoding/json"

	"moneytracker/internal/core"
)

type (
	// Properties is the property bag of a create-page request, keyed by the
	// external property name. encoding/json writes map keys in sorted order,
	// so equal Properties always marshal to identical bytes.
	Properties map[string]PropertyValue

	// PropertyValue is one typed wrapper. Exactly one field is set.
	PropertyValue struct {
		Title    []RichText   `json:"title,omitempty"`
		RichText []RichText   `json:"rich_text,omitempty"`
		Select   *SelectValue `json:"select,omitempty"`
		Number   *json.Number `json:"number,omitempty"`
		Date     *DateValue   `json:"date,omitempty"`
	}

	RichText struct {
		Text TextContent `json:"text"`
	}

	TextContent struct {
		Content string `json:"content"`
	}

	SelectValue struct {
		Name string `json:"name"`
	}

	DateValue struct {
		Start string `json:"start"`
	}
)

// BuildProperties maps a validated record onto the schema's external property
// names. It does no I/O and does not modify rec or schema.
func BuildProperties(rec core.Record, schema core.Schema) Properties {
	props := make(Properties, len(schema.Fields))
	for _, f := range schema.Fields {
		v, ok := rec.Values[f.Name]
		if !ok {
			continue
		}
		props[f.Property] = wrap(f.Type, v)
	}
	return props
}

func wrap(t core.SemanticType, v core.Value) PropertyValue {
	switch t {
	case core.TypeText:
		return PropertyValue{Title: richText(v.Text)}
	case core.TypeEnum:
		return PropertyValue{Select: &SelectValue{Name: v.Text}}
	case core.TypeMoney, core.TypePercentage:
		n := json.Number(v.Number.String())
		return PropertyValue{Number: &n}
	case core.TypeDate:
		return PropertyValue{Date: &DateValue{Start: v.Date.ISO()}}
	default:
		return PropertyValue{RichText: richText(v.Text)}
	}
}

// richText always yields one element, even for an empty string, so the
// wrapper is never dropped by omitempty.
func richText(s string) []RichText {
	return []RichText{{Text: TextContent{Content: s}}}
}

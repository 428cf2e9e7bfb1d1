package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Validate converts raw input into a typed Record according to the schema.
//
// Fields are checked in schema order and the first invalid one is returned as
// a *FieldError; no partial Record is produced. Enum values are not compared
// with any option list here, the workspace enforces its own choices.
func Validate(schema Schema, raw RawInput) (Record, error) {
	rec := Record{Kind: schema.Kind, Values: make(map[string]Value, len(schema.Fields))}

	for _, f := range schema.Fields {
		in := raw[f.Name]

		switch f.Type {
		case TypeMoney, TypePercentage:
			var (
				n   decimal.Decimal
				err error
			)
			if f.Type == TypePercentage {
				n, err = ParsePercentage(in.Text)
			} else {
				n, err = ParseAmount(in.Text)
			}
			if err != nil {
				return Record{}, &FieldError{
					Field:  f.Name,
					Value:  in.Text,
					Reason: "invalid number format, use numbers only (e.g. 5,000 or 5%)",
					Err:    ErrInvalidNumberFormat,
				}
			}
			rec.Values[f.Name] = Value{Kind: ValueNumber, Number: n}

		case TypeDate:
			if err := in.Date.Validate(); err != nil {
				return Record{}, &FieldError{
					Field:  f.Name,
					Value:  in.Text,
					Reason: "a calendar date is required",
					Err:    ErrInvalidFieldValue,
				}
			}
			rec.Values[f.Name] = Value{Kind: ValueDate, Date: in.Date}

		default:
			if f.Required && strings.TrimSpace(in.Text) == "" {
				return Record{}, &FieldError{
					Field:  f.Name,
					Value:  in.Text,
					Reason: "value is required",
					Err:    ErrInvalidFieldValue,
				}
			}
			rec.Values[f.Name] = Value{Kind: ValueText, Text: in.Text}
		}
	}

	return rec, nil
}

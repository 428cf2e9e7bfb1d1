package core

import (
	"fmt"
	"strings"
)

const (
	DailyExpense       RecordKind = "daily-expense"
	MonthlyOverview    RecordKind = "monthly-overview"
	InvestmentEntry    RecordKind = "investment-entry"
	GenericTransaction RecordKind = "daily-money"
)

const (
	TypeText       SemanticType = "text"
	TypeMoney      SemanticType = "money"
	TypePercentage SemanticType = "percentage"
	TypeDate       SemanticType = "date"
	TypeEnum       SemanticType = "enum"
	TypeLongText   SemanticType = "long_text"
)

// Internal field names shared by every kind.
const (
	FieldTransaction      = "transaction"
	FieldDate             = "date"
	FieldAmount           = "amount"
	FieldCategory         = "category"
	FieldType             = "type"
	FieldPaymentMethod    = "payment_method"
	FieldNote             = "note"
	FieldMonthlyBudget    = "monthly_budget"
	FieldInvestmentReturn = "investment_return"
)

// TransactionTypes are the options of the select-constrained "type" field.
var TransactionTypes = []string{"Expense", "Income", "Investment", "Savings", "Transfer"}

type (
	RecordKind   string
	SemanticType string

	// FieldSpec declares one form field and the external property it maps to.
	FieldSpec struct {
		Name              string
		Label             string
		Property          string
		Type              SemanticType
		Required          bool
		SelectConstrained bool
		Options           []string
		Placeholder       string
	}

	// Schema is the declarative description of one record kind.
	Schema struct {
		Kind          RecordKind
		Title         string
		Heading       string
		SuccessText   string
		Fields        []FieldSpec
		ResetOnAccept bool
	}
)

// Kinds returns every record kind in display order.
func Kinds() []RecordKind {
	return []RecordKind{DailyExpense, GenericTransaction, MonthlyOverview, InvestmentEntry}
}

func (k RecordKind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the known kinds.
func (k RecordKind) IsValid() bool {
	switch k {
	case DailyExpense, MonthlyOverview, InvestmentEntry, GenericTransaction:
		return true
	default:
		return false
	}
}

// ParseKind converts a path segment or config key to a RecordKind.
func ParseKind(s string) (RecordKind, error) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown record kind %q", s)
	}
	return k, nil
}

// IsNumeric reports whether values of this type are decimals.
func (t SemanticType) IsNumeric() bool {
	return t == TypeMoney || t == TypePercentage
}

// Field returns the FieldSpec for the named field.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// WithProperty returns a copy of the schema with one field remapped to a
// different external property name. The receiver is left untouched.
func (s Schema) WithProperty(field, property string) (Schema, error) {
	out := s
	out.Fields = make([]FieldSpec, len(s.Fields))
	copy(out.Fields, s.Fields)
	for i := range out.Fields {
		if out.Fields[i].Name == field {
			out.Fields[i].Property = property
			return out, nil
		}
	}
	return s, fmt.Errorf("kind %s has no field %q", s.Kind, field)
}

// PreservedOnReset reports whether a field keeps its value after an accepted
// submission clears the form.
func PreservedOnReset(field string) bool {
	return field == FieldDate || field == FieldType
}

// DefaultSchema returns the built-in schema for a kind.
func DefaultSchema(kind RecordKind) (Schema, error) {
	switch kind {
	case DailyExpense:
		return Schema{
			Kind:          DailyExpense,
			Title:         "Daily Expenses",
			Heading:       "Log Daily Expenses",
			SuccessText:   "Expense added successfully",
			Fields:        baseFields("Notes", nil),
			ResetOnAccept: true,
		}, nil
	case GenericTransaction:
		return Schema{
			Kind:          GenericTransaction,
			Title:         "Daily Money",
			Heading:       "Log Daily Money",
			SuccessText:   "Daily Money logged successfully",
			Fields:        baseFields("Notes", nil),
			ResetOnAccept: true,
		}, nil
	case MonthlyOverview:
		return Schema{
			Kind:        MonthlyOverview,
			Title:       "Monthly Overview",
			Heading:     "Log Monthly Savings / Overview",
			SuccessText: "Monthly overview logged successfully",
			Fields: baseFields("Note", &FieldSpec{
				Name:        FieldMonthlyBudget,
				Label:       "Monthly Budget (use numbers only)",
				Property:    "Monthly_budget",
				Type:        TypeMoney,
				Required:    true,
				Placeholder: "e.g. 2,000",
			}),
			ResetOnAccept: true,
		}, nil
	case InvestmentEntry:
		return Schema{
			Kind:        InvestmentEntry,
			Title:       "Investment Tracker",
			Heading:     "Log Investment",
			SuccessText: "Investment logged successfully",
			Fields: baseFields("Notes", &FieldSpec{
				Name:        FieldInvestmentReturn,
				Label:       "Investment Return (%)",
				Property:    "Investment Return",
				Type:        TypePercentage,
				Required:    true,
				Placeholder: "e.g. 5 or 5%",
			}),
			ResetOnAccept: true,
		}, nil
	default:
		return Schema{}, fmt.Errorf("unknown record kind %q", kind)
	}
}

// baseFields builds the field list shared by all kinds. extra, when set, is
// inserted right after the category field.
func baseFields(noteProperty string, extra *FieldSpec) []FieldSpec {
	fields := []FieldSpec{
		{Name: FieldTransaction, Label: "Transaction Name", Property: "Transaction", Type: TypeText, Required: true},
		{Name: FieldDate, Label: "Date", Property: "Date", Type: TypeDate, Required: true},
		{Name: FieldAmount, Label: "Amount (use numbers only)", Property: "Amount", Type: TypeMoney, Required: true, Placeholder: "e.g. 5,000"},
		{Name: FieldCategory, Label: "Category", Property: "Category", Type: TypeEnum, Required: true},
	}
	if extra != nil {
		fields = append(fields, *extra)
	}
	fields = append(fields,
		FieldSpec{Name: FieldType, Label: "Type", Property: "Type", Type: TypeEnum, Required: true, SelectConstrained: true, Options: TransactionTypes},
		FieldSpec{Name: FieldPaymentMethod, Label: "Payment Method", Property: "Payment Method", Type: TypeEnum, Required: true},
		FieldSpec{Name: FieldNote, Label: noteProperty + " (optional)", Property: noteProperty, Type: TypeLongText},
	)
	return fields
}

package core

import "testing"

func TestDefaultSchemasPropertyNames(t *testing.T) {
	cases := []struct {
		kind  RecordKind
		field string
		prop  string
	}{
		{DailyExpense, FieldNote, "Notes"},
		{GenericTransaction, FieldNote, "Notes"},
		{MonthlyOverview, FieldNote, "Note"},
		{MonthlyOverview, FieldMonthlyBudget, "Monthly_budget"},
		{InvestmentEntry, FieldInvestmentReturn, "Investment Return"},
		{InvestmentEntry, FieldPaymentMethod, "Payment Method"},
	}
	for _, tc := range cases {
		s := mustSchema(t, tc.kind)
		f, ok := s.Field(tc.field)
		if !ok {
			t.Fatalf("%s: missing field %s", tc.kind, tc.field)
		}
		if f.Property != tc.prop {
			t.Fatalf("%s.%s: expected property %q, got %q", tc.kind, tc.field, tc.prop, f.Property)
		}
	}
}

func TestExtraFieldFollowsCategory(t *testing.T) {
	s := mustSchema(t, InvestmentEntry)
	for i, f := range s.Fields {
		if f.Name == FieldCategory {
			if s.Fields[i+1].Name != FieldInvestmentReturn {
				t.Fatalf("expected investment_return after category, got %s", s.Fields[i+1].Name)
			}
			return
		}
	}
	t.Fatalf("category field not found")
}

func TestWithPropertyCopies(t *testing.T) {
	base := mustSchema(t, MonthlyOverview)
	changed, err := base.WithProperty(FieldNote, "Notes")
	if err != nil {
		t.Fatalf("WithProperty: %v", err)
	}
	if f, _ := changed.Field(FieldNote); f.Property != "Notes" {
		t.Fatalf("expected override, got %q", f.Property)
	}
	if f, _ := base.Field(FieldNote); f.Property != "Note" {
		t.Fatalf("original schema mutated: %q", f.Property)
	}
	if _, err := base.WithProperty("nope", "X"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(" " + string(k) + " ")
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("weekly"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

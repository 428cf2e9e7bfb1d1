package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moneytracker/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"transaction": "Coffee", "amount": 4.5, "note": "  hi\u0007 "}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	tests := map[string]string{
		"transaction": "Coffee",
		"amount":      "4.5",
		"note":        "  hi ",
		"missing":     "",
	}
	for key, want := range tests {
		if got := parser.Get(key); got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "transaction=Coffee&amount=1%2C000&category=Food"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	schema, _ := core.DefaultSchema(core.DailyExpense)
	values := parser.Values(schema)
	if len(values) != len(schema.Fields) {
		t.Fatalf("expected one value per field, got %v", values)
	}
	if values[core.FieldAmount] != "1,000" {
		t.Errorf("amount = %q", values[core.FieldAmount])
	}
	if values[core.FieldNote] != "" {
		t.Errorf("note = %q, want empty", values[core.FieldNote])
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"amount":`))
	req.Header.Set("Content-Type", "application/json")

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected an error for truncated JSON")
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := "note=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

	if err := NewRequestBodyParser(req).Parse(); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("Parse() error = %v, want errBodyTooLarge", err)
	}
}

func TestRequestBodyParser_JSONNumbersKeepPrecision(t *testing.T) {
	body := `{"amount": 1234567890123456.78, "investment_return": 5, "date": " 2024-03-01 "}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	schema, _ := core.DefaultSchema(core.InvestmentEntry)
	values := parser.Values(schema)
	if got := values[core.FieldAmount]; got != "1234567890123456.78" {
		t.Errorf("amount = %q, want 1234567890123456.78", got)
	}
	if got := values[core.FieldInvestmentReturn]; got != "5" {
		t.Errorf("investment_return = %q, want 5", got)
	}
	if got := values[core.FieldDate]; got != "2024-03-01" {
		t.Errorf("date = %q, want trimmed", got)
	}
}

func TestRequestBodyParser_TextKeptAsEntered(t *testing.T) {
	body := "transaction=+Coffee&note=%20%20line%20one%0A&amount=+4.50+"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	schema, _ := core.DefaultSchema(core.DailyExpense)
	values := parser.Values(schema)
	want := map[string]string{
		core.FieldTransaction: " Coffee",
		core.FieldNote:        "  line one\n",
		core.FieldAmount:      "4.50",
	}
	for field, w := range want {
		if got := values[field]; got != w {
			t.Errorf("%s = %q, want %q", field, got, w)
		}
	}
}

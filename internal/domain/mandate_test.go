package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const (
	testSourceIBAN      = "ES9121000418450200051332"
	testDestinationIBAN = "DE89370400440532013000"
)

func testMandate(periodicity Periodicity, lastExecuted time.Time) Mandate {
	return Mandate{
		ID:              "mandate-1",
		ClientID:        "client-1",
		SourceIBAN:      testSourceIBAN,
		DestinationIBAN: testDestinationIBAN,
		Amount:          decimal.NewFromInt(200),
		CreditorName:    "Energy Co",
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Periodicity:     periodicity,
		Active:          true,
		LastExecuted:    lastExecuted,
	}
}

func TestIsDue_RuleTable(t *testing.T) {
	lastExecuted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		periodicity Periodicity
		now         time.Time
		want        bool
	}{
		{"daily elapsed", PeriodicityDaily, time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC), true},
		{"daily not yet", PeriodicityDaily, time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), false},
		{"daily boundary equality is not due", PeriodicityDaily, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"weekly elapsed", PeriodicityWeekly, time.Date(2024, 1, 8, 0, 0, 1, 0, time.UTC), true},
		{"weekly not yet", PeriodicityWeekly, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), false},
		{"monthly elapsed", PeriodicityMonthly, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"monthly not yet", PeriodicityMonthly, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"monthly boundary equality is not due", PeriodicityMonthly, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"yearly elapsed", PeriodicityYearly, time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC), true},
		{"yearly not yet", PeriodicityYearly, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"unknown periodicity never due", Periodicity("FORTNIGHTLY"), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"empty periodicity never due", Periodicity(""), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := testMandate(tc.periodicity, lastExecuted)
			if got := m.IsDue(tc.now); got != tc.want {
				t.Fatalf("IsDue(%s) with %s periodicity = %v, want %v", tc.now, tc.periodicity, got, tc.want)
			}
		})
	}
}

func TestIsDue_MonthEndAnchorsClampToShorterMonths(t *testing.T) {
	cases := []struct {
		name         string
		periodicity  Periodicity
		lastExecuted time.Time
		now          time.Time
		want         bool
	}{
		{"jan 31 monthly due on mar 1 in a leap year", PeriodicityMonthly,
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"jan 31 monthly equality on feb 29 is not due", PeriodicityMonthly,
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"jan 31 monthly due just after feb 29", PeriodicityMonthly,
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 1, 0, time.UTC), true},
		{"jan 30 monthly clamps to feb 29", PeriodicityMonthly,
			time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 1, 0, time.UTC), true},
		{"jan 29 monthly lands on feb 29 unclamped", PeriodicityMonthly,
			time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"jan 31 monthly clamps to feb 28 in a common year", PeriodicityMonthly,
			time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"jan 31 monthly equality on feb 28 in a common year is not due", PeriodicityMonthly,
			time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), false},
		{"may 31 monthly clamps to jun 30", PeriodicityMonthly,
			time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), true},
		{"feb 29 yearly clamps to feb 28 of the next year", PeriodicityYearly,
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"feb 29 yearly equality on feb 28 is not due", PeriodicityYearly,
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := testMandate(tc.periodicity, tc.lastExecuted)
			if got := m.IsDue(tc.now); got != tc.want {
				t.Fatalf("IsDue(%s) anchored on %s = %v, want %v", tc.now, tc.lastExecuted, got, tc.want)
			}
		})
	}
}

func TestIsDue_NeverExecutedMandateIsDue(t *testing.T) {
	m := testMandate(PeriodicityMonthly, time.Time{})
	if !m.IsDue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("a mandate with a zero last-executed timestamp should be due")
	}
}

func TestValidate_AcceptsWellFormedMandate(t *testing.T) {
	m := testMandate(PeriodicityMonthly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate returned error for a well-formed mandate: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	base := testMandate(PeriodicityMonthly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		name   string
		mutate func(m *Mandate)
	}{
		{"zero amount", func(m *Mandate) { m.Amount = decimal.Zero }},
		{"negative amount", func(m *Mandate) { m.Amount = decimal.NewFromInt(-5) }},
		{"malformed source iban", func(m *Mandate) { m.SourceIBAN = "ES911234" }},
		{"bad source checksum", func(m *Mandate) { m.SourceIBAN = "ES9121000418450200051333" }},
		{"malformed destination iban", func(m *Mandate) { m.DestinationIBAN = "not-an-iban" }},
		{"same source and destination", func(m *Mandate) { m.DestinationIBAN = m.SourceIBAN }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := base
			tc.mutate(&m)
			err := m.Validate()
			if err == nil {
				t.Fatal("Validate accepted an invalid mandate")
			}
			if !errors.Is(err, ErrInvalidMandate) {
				t.Fatalf("expected ErrInvalidMandate, got %v", err)
			}
		})
	}
}

func TestValidIBAN(t *testing.T) {
	valid := []string{
		"ES9121000418450200051332",
		"DE89370400440532013000",
		"GB82WEST12345698765432",
	}
	for _, iban := range valid {
		if !ValidIBAN(iban) {
			t.Errorf("ValidIBAN(%q) = false, want true", iban)
		}
	}

	invalid := []string{
		"",
		"ES91",
		"es9121000418450200051332",          // lowercase country code
		"E59121000418450200051332",          // digit in country code
		"ESAA21000418450200051332",          // letters in check digits
		"ES9121000418450200051333",          // checksum off by one
		"ES91 2100 0418 4502 0005 1332",     // spaces not allowed here
		"ES91210004184502000513321234567890123", // over 34 chars
	}
	for _, iban := range invalid {
		if ValidIBAN(iban) {
			t.Errorf("ValidIBAN(%q) = true, want false", iban)
		}
	}
}

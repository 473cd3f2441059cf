package datetime

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "ISO date",
			input:    "2015-08-11",
			expected: "2015-08-11",
		},
		{
			name:     "Timestamp with clock",
			input:    "2015-08-11 14:30:00",
			expected: "2015-08-11",
		},
		{
			name:     "Slash separated",
			input:    "2015/8/11",
			expected: "2015-08-11",
		},
		{
			name:     "Compact",
			input:    "20150811",
			expected: "2015-08-11",
		},
		{
			name:     "Chinese date",
			input:    "2015年8月11日",
			expected: "2015-08-11",
		},
		{
			name:     "Excel serial",
			input:    "42227",
			expected: "2015-08-11",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  2020-03-11 ",
			expected: "2020-03-11",
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "Garbage",
			input:   "not-a-date",
			wantErr: true,
		},
		{
			name:    "Small number is not a serial",
			input:   "6.85",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDate(%q) expected error but got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.input, err)
			}
			if got := result.Format(DateLayout); got != tt.expected {
				t.Errorf("ParseDate(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
			if result.Location() != time.UTC {
				t.Errorf("ParseDate(%q) location = %v, expected UTC", tt.input, result.Location())
			}
		})
	}
}

func TestMustParseDatePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected MustParseDate to panic with invalid date")
		}
	}()

	MustParseDate("invalid-date")
}

func TestEachDay(t *testing.T) {
	start := MustParseDate("2024-02-27")
	end := MustParseDate("2024-03-02")

	days := EachDay(start, end)
	if len(days) != 5 {
		t.Fatalf("EachDay() returned %d days, expected 5 (leap year)", len(days))
	}
	if Format(days[2]) != "2024-02-29" {
		t.Errorf("EachDay()[2] = %s, expected 2024-02-29", Format(days[2]))
	}

	if got := EachDay(end, start); got != nil {
		t.Errorf("EachDay() with reversed bounds = %v, expected nil", got)
	}
}

func TestDaysBetween(t *testing.T) {
	a := MustParseDate("2019-08-05")
	b := MustParseDate("2019-09-04")

	if got := DaysBetween(a, b); got != 30 {
		t.Errorf("DaysBetween() = %d, expected 30", got)
	}
	if got := DaysBetween(b, a); got != -30 {
		t.Errorf("DaysBetween() = %d, expected -30", got)
	}
}

func TestInRange(t *testing.T) {
	from := MustParseDate("2010-01-01")
	to := MustParseDate("2010-12-31")

	tests := []struct {
		name     string
		date     string
		from     time.Time
		to       time.Time
		expected bool
	}{
		{"Inside", "2010-06-01", from, to, true},
		{"On lower bound", "2010-01-01", from, to, true},
		{"On upper bound", "2010-12-31", from, to, true},
		{"Before", "2009-12-31", from, to, false},
		{"After", "2011-01-01", from, to, false},
		{"Open bounds", "1999-01-01", time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InRange(MustParseDate(tt.date), tt.from, tt.to); got != tt.expected {
				t.Errorf("InRange(%s) = %v, expected %v", tt.date, got, tt.expected)
			}
		})
	}
}

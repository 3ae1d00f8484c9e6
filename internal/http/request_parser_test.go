package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"seguimiento/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		def       int
		wantMonth int
		wantYear  int
		wantErr   error
	}{
		{
			name:      "defaults when absent",
			query:     url.Values{},
			def:       3,
			wantMonth: 3,
		},
		{
			name:      "numeric month and year",
			query:     url.Values{"mes": {"12"}, "anio": {"2024"}},
			wantMonth: 12,
			wantYear:  2024,
		},
		{
			name:      "spanish month name",
			query:     url.Values{"mes": {" Febrero "}},
			wantMonth: 2,
		},
		{
			name:    "month out of range",
			query:   url.Values{"mes": {"0"}},
			wantErr: core.ErrInvalidMonth,
		},
		{
			name:    "year out of range",
			query:   url.Values{"mes": {"1"}, "anio": {"1999"}},
			wantErr: core.ErrInvalidYear,
		},
		{
			name:    "year not a number",
			query:   url.Values{"anio": {"dos mil"}},
			wantErr: core.ErrInvalidYear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMonthParams(tt.query, tt.def)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Month != tt.wantMonth || got.Year != tt.wantYear {
				t.Errorf("got %+v, want month %d year %d", got, tt.wantMonth, tt.wantYear)
			}
		})
	}
}

func TestParseMonthValue(t *testing.T) {
	q := url.Values{"mes1": {"ene"}, "mes2": {"x"}}
	if m, err := parseMonthValue(q, "mes1", 5); err != nil || m != 1 {
		t.Errorf("mes1 = %d, %v", m, err)
	}
	if m, err := parseMonthValue(q, "mes3", 5); err != nil || m != 5 {
		t.Errorf("absent key = %d, %v", m, err)
	}
	if _, err := parseMonthValue(q, "mes2", 5); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("invalid month err = %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@b.co"}`, false},
		{"empty", ``, true},
		{"malformed", `{"email":`, true},
		{"too large", `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst loginRequest
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if status, _ := statusFor(err); status != http.StatusUnprocessableEntity {
					t.Errorf("status = %d", status)
				}
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Alpha  ", "Alpha"},
		{"Al\x00pha\n", "Alpha"},
		{"a\tb", "a\tb"},
		{"del\x7f", "del"},
		{"Apropiación", "Apropiación"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := generateRequestID(), generateRequestID()
	if !strings.HasPrefix(a, "req_") || a == b {
		t.Fatalf("request ids %q and %q", a, b)
	}
}

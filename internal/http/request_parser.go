// This file implements helpers for reading query parameters and JSON bodies.

package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"seguimiento/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. Empty and malformed bodies
// are input errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidInput("cuerpo de la solicitud vacío")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalidInput("cuerpo de la solicitud demasiado grande")
		}
		return invalidInput(fmt.Sprintf("JSON inválido: %v", err))
	}
	return nil
}

// MonthParams holds the reporting month selected by query parameters.
type MonthParams struct {
	Month int
	// Year is 0 when the request does not restrict the year.
	Year int
}

// parseMonthParams reads mes (number or Spanish name) and anio. A missing
// mes falls back to def.
func parseMonthParams(query url.Values, def int) (MonthParams, error) {
	p := MonthParams{Month: def}
	if v := strings.TrimSpace(query.Get("mes")); v != "" {
		m, err := core.ParseMonth(v)
		if err != nil {
			return MonthParams{}, err
		}
		p.Month = m
	}
	if v := strings.TrimSpace(query.Get("anio")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			return MonthParams{}, fmt.Errorf("%w: %q", core.ErrInvalidYear, v)
		}
		p.Year = y
	}
	return p, nil
}

// parseMonthValue reads one month parameter, returning def when it is absent.
func parseMonthValue(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	return core.ParseMonth(v)
}

// sanitizeInput trims s and removes control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

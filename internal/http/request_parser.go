// Package http provides the JSON API server and its handlers.
//
// This file implements helpers for decoding request bodies, query strings
// and multipart uploads into service inputs.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected so typos in field names surface as 400s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.Invalidf("request body is required")
		case errors.As(err, &maxErr):
			return core.Invalidf("request body too large")
		case errors.Is(err, core.ErrValidation):
			return err
		default:
			return core.Invalidf("invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return core.Invalidf("request body must contain a single JSON object")
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// QueryParser reads typed query parameters, keeping the first error.
type QueryParser struct {
	values url.Values
	err    error
}

func NewQueryParser(r *http.Request) *QueryParser {
	return &QueryParser{values: r.URL.Query()}
}

// String returns the sanitized value of key.
func (p *QueryParser) String(key string) string {
	return sanitizeInput(p.values.Get(key))
}

// Int returns key as an integer, or def when absent.
func (p *QueryParser) Int(key string, def int) int {
	v := strings.TrimSpace(p.values.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(core.Invalidf("%s must be an integer", key))
		return def
	}
	return n
}

// OptionalBool returns nil when key is absent.
func (p *QueryParser) OptionalBool(key string) *bool {
	v := strings.TrimSpace(p.values.Get(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(core.Invalidf("%s must be true or false", key))
		return nil
	}
	return &b
}

// Bool returns key as a boolean, or def when absent.
func (p *QueryParser) Bool(key string, def bool) bool {
	if b := p.OptionalBool(key); b != nil {
		return *b
	}
	return def
}

// Date returns key as a YYYY-MM-DD date, or the zero date when absent.
func (p *QueryParser) Date(key string) core.Date {
	v := strings.TrimSpace(p.values.Get(key))
	if v == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		p.fail(core.Invalidf("%s must be YYYY-MM-DD", key))
		return core.Date{}
	}
	return d
}

// Month returns the first day of the month named by key (YYYY-MM or
// YYYY-MM-DD), defaulting to the month containing today.
func (p *QueryParser) Month(key string, today core.Date) core.Date {
	m, err := core.ParseMonth(p.values.Get(key), today)
	if err != nil {
		p.fail(err)
		return today.MonthStart()
	}
	return m
}

// Err returns the first parse failure.
func (p *QueryParser) Err() error {
	return p.err
}

func (p *QueryParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// Upload is a file read from a multipart form together with its other
// fields.
type Upload struct {
	Filename string
	Data     []byte
	Form     url.Values
}

// readUpload parses a multipart form carrying a "file" part, bounded by
// maxBytes.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, core.Invalidf("file exceeds the %d byte upload limit", maxBytes)
		}
		return nil, core.Invalidf("expected a multipart form with a file field")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, core.Invalidf("file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	form := url.Values{}
	for k, v := range r.MultipartForm.Value {
		for _, s := range v {
			form.Add(k, sanitizeInput(s))
		}
	}
	return &Upload{Filename: header.Filename, Data: data, Form: form}, nil
}

// formBool parses an optional boolean form field.
func formBool(form url.Values, key string) (bool, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.Invalidf("%s must be true or false", key)
	}
	return b, nil
}

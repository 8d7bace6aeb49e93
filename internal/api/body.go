package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"tweeter/internal/apperr"
)

// fields is a request body flattened to its present keys. A key that is
// missing, or null in JSON, is absent; anything else is present even when
// empty.
type fields map[string]string

// readFields accepts a JSON object or a form-encoded body.
func readFields(r *http.Request) (fields, error) {
	f := fields{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, apperr.Validation("malformed form body")
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				f[k] = vs[0]
			}
		}
		return f, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return nil, apperr.Validation("malformed JSON body")
	}
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
		case string:
			f[k] = v
		case json.Number:
			f[k] = v.String()
		default:
			return nil, apperr.Validation(fmt.Sprintf("%s must be a string or a number", k))
		}
	}
	return f, nil
}

func (f fields) str(key string) *string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	return &v
}

func (f fields) int64(key string) (*int64, error) {
	v, ok := f[key]
	if !ok {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("%s must be an integer", key))
	}
	return &n, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

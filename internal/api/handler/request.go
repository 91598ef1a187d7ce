package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"fintrack/internal/common"
	"fintrack/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the request body. Malformed
// payloads are reported as validation failures.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		v := &common.ValidationError{}
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			v.Add("body", "field required")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			v.Add(typeErr.Field, "invalid type, expected "+typeErr.Type.String())
		case errors.Is(err, model.ErrInvalidAmount):
			v.Add("value", err.Error())
		default:
			v.Add("body", "invalid JSON: "+err.Error())
		}
		return v
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.Errorf("%s must be an integer: %w", name, common.ErrBadRequest)
	}
	return n, nil
}

/*
Package req provides helper functions for request parsing and data binding.

It decodes JSON from HTTP request bodies and from the payload of inbound WebSocket
messages, mapping malformed input to application error codes.
*/
package req

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"hzarena/internal/pkg/errs"
)

// MaxBodySize bounds JSON request bodies.
const MaxBodySize int64 = 64 << 10 // 64 KB

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	return decodeStrict(http.MaxBytesReader(w, r.Body, MaxBodySize), dst)
}

// BindPayload binds a raw WebSocket message payload to dst.
func BindPayload(payload json.RawMessage, dst any) *errs.CustomError {
	if len(payload) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return decodeStrict(bytes.NewReader(payload), dst)
}

func decodeStrict(r io.Reader, dst any) *errs.CustomError {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

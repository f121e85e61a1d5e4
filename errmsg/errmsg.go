// Package errmsg turns whatever a failed API call produced into the one
// human-readable message the ERP screens show inline.
package errmsg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	// Generic is shown when nothing better can be extracted
	Generic = "Ha ocurrido un error inesperado"
	// Network is shown for connection failures and timeouts
	Network = "No se pudo conectar con el servidor"
)

// BodyError is an error that carries the raw response body of a failed request.
type BodyError interface {
	error
	Body() []byte
}

// Extract never panics and Extract(Extract(v)) == Extract(v).
func Extract(v any) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = Generic
		}
	}()

	switch x := v.(type) {
	case nil:
		return Generic
	case string:
		return orGeneric(x)
	case []byte:
		return fromBody(x)
	case json.RawMessage:
		return fromBody(x)
	case error:
		return fromError(x)
	case map[string]any:
		return fromObject(x)
	case []any:
		if len(x) == 0 {
			return Generic
		}
		return Extract(x[0])
	}

	// structs and other values go through their JSON shape
	b, err := json.Marshal(v)
	if err != nil {
		return orGeneric(fmt.Sprintf("%v", v))
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return orGeneric(string(b))
	}
	if m, ok := decoded.(map[string]any); ok {
		return fromObject(m)
	}
	if s, ok := decoded.(string); ok {
		return orGeneric(s)
	}
	return orGeneric(string(b))
}

func fromError(err error) string {
	var be BodyError
	if errors.As(err, &be) {
		if body := be.Body(); len(strings.TrimSpace(string(body))) > 0 {
			return fromBody(body)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Network
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Network
	}
	return orGeneric(err.Error())
}

func fromBody(body []byte) string {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return orGeneric(strings.TrimSpace(string(body)))
	}
	return Extract(decoded)
}

func fromObject(m map[string]any) string {
	switch detail := m["detail"].(type) {
	case string:
		if strings.TrimSpace(detail) != "" {
			return detail
		}
	case []any:
		if len(detail) > 0 {
			return fromValidationEntry(detail[0])
		}
	case map[string]any:
		return fromObject(detail)
	}

	for _, key := range []string{"message", "error"} {
		switch field := m[key].(type) {
		case string:
			if strings.TrimSpace(field) != "" {
				return field
			}
		case map[string]any:
			return fromObject(field)
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return Generic
	}
	return orGeneric(string(b))
}

// fromValidationEntry formats one framework validation error: {"loc": [...], "msg": "..."}
func fromValidationEntry(entry any) string {
	e, ok := entry.(map[string]any)
	if !ok {
		return Extract(entry)
	}
	msg, _ := e["msg"].(string)
	if msg == "" {
		msg, _ = e["message"].(string)
	}
	loc, _ := e["loc"].([]any)
	if len(loc) == 0 {
		if msg != "" {
			return msg
		}
		return fromObject(e)
	}
	path := make([]string, 0, len(loc))
	for _, part := range loc {
		path = append(path, fmt.Sprint(part))
	}
	return fmt.Sprintf("Error en %s: %s", strings.Join(path, " -> "), msg)
}

func orGeneric(s string) string {
	if strings.TrimSpace(s) == "" {
		return Generic
	}
	return s
}

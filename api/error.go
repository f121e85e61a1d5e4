package api

import "fmt"

// Error a non-2xx response from the ERP API. The body is kept verbatim so the
// caller can extract the server's own message.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	body       []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Body returns the raw response body
func (e *Error) Body() []byte { return e.body }

package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{Invalid("text is required"), http.StatusBadRequest, "bad_request", "invalid input: text is required"},
		{Forbidden("not a participant"), http.StatusForbidden, "forbidden", "forbidden: not a participant"},
		{fmt.Errorf("%w: conversation", ErrNotFound), http.StatusNotFound, "not_found", "not found: conversation"},
		{fmt.Errorf("%w: token expired", ErrUnauthenticated), http.StatusUnauthorized, "unauthorized", "invalid or expired credential"},
		{fmt.Errorf("%w: dial tcp: refused", ErrPersistence), http.StatusInternalServerError, "internal_error", "internal error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error", "internal error"},
	}
	for _, tt := range tests {
		if got := ToHTTP(tt.err); got != tt.status {
			t.Errorf("ToHTTP(%v)=%d want %d", tt.err, got, tt.status)
		}
		if got := Code(tt.err); got != tt.code {
			t.Errorf("Code(%v)=%q want %q", tt.err, got, tt.code)
		}
		if got := Message(tt.err); got != tt.msg {
			t.Errorf("Message(%v)=%q want %q", tt.err, got, tt.msg)
		}
	}
}

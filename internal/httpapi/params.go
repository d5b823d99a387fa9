package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// QueryID parses a positive integer query parameter. ok is false when the
// parameter is absent.
func QueryID(r *http.Request, name string) (id int64, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	id, perr := strconv.ParseInt(raw, 10, 64)
	if perr != nil || id <= 0 {
		return 0, true, BadRequest(fmt.Sprintf("%s must be a positive integer", name))
	}
	return id, true, nil
}

// QueryIDs parses a comma separated list of positive integers.
func QueryIDs(r *http.Request, name string) ([]int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, BadRequest(fmt.Sprintf("%s must list positive integers", name))
		}
		out = append(out, id)
	}
	return out, nil
}

package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// ParseParams turns repeated key=value flags into report params. A value that
// parses as JSON keeps its JSON type, anything else stays a string.
func ParseParams(pairs []string) (domain.Params, error) {
	params := make(domain.Params, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}

		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		params[key] = v
	}
	return params, nil
}

package entity

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"freelanceflow/internal/api"
	"freelanceflow/internal/model"
)

// Fields is user input for a create form, keyed by wire field name.
type Fields map[string]any

// plain flattens optional and named-string values into what goes on the wire.
func plain(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case model.Date:
		return x.String()
	case *model.Date:
		if x == nil {
			return nil
		}
		return x.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return v
}

// normalize validates and cleans a create body (partial=false) or a patch (partial=true).
func (c Config) normalize(in map[string]any, partial bool) (map[string]any, error) {
	out := make(map[string]any, len(in)+len(c.Defaults))
	for k, v := range in {
		v = plain(v)
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			switch {
			case s == "" && (c.isOptional(k) || c.isDate(k)):
				v = nil
			case c.isDate(k):
				d, err := model.ParseDate(s)
				if err != nil {
					return nil, &ValidationError{Field: k, Reason: "must be a date (YYYY-MM-DD)"}
				}
				v = d.String()
			default:
				v = s
			}
		}
		out[k] = v
	}

	if !partial {
		for k, def := range c.Defaults {
			if s, ok := out[k].(string); !ok || s == "" {
				out[k] = def
			}
		}
	}

	if c.Required != "" {
		v, present := out[c.Required]
		s, _ := v.(string)
		if (!partial || present) && s == "" {
			return nil, &ValidationError{Field: c.Required, Reason: "is required"}
		}
	}

	for k, allowed := range c.Enums {
		v, present := out[k]
		if !present {
			continue
		}
		s, _ := v.(string)
		s = strings.ToLower(s)
		if !slices.Contains(allowed, s) {
			return nil, &ValidationError{Field: k, Reason: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))}
		}
		out[k] = s
	}

	if c.ParentKey != "" {
		if v, present := out[c.ParentKey]; present || !partial {
			id, ok := asID(v)
			if !ok {
				return nil, &ValidationError{Field: c.ParentKey, Reason: "is required"}
			}
			out[c.ParentKey] = id
		}
	}
	return out, nil
}

func asID(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), x > 0
	case int64:
		return x, x > 0
	case float64:
		return int64(x), x > 0
	case json.Number:
		n, err := x.Int64()
		return n, err == nil && n > 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// applyPatch merges p into item through the item's JSON form, so any field the wire
// format knows can be patched without per-type code.
func applyPatch[T any](item T, p api.Patch) (T, error) {
	var zero T
	b, err := json.Marshal(item)
	if err != nil {
		return zero, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return zero, err
	}
	for k, v := range p {
		m[k] = v
	}
	b, err = json.Marshal(m)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// label returns the item's display field (name or title).
func label[T any](item T, field string) string {
	b, err := json.Marshal(item)
	if err != nil {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return ""
	}
	s, _ := m[field].(string)
	return s
}

// NormalizePatch applies the same cleaning and validation UpdateField uses, for callers
// that send patches without a local list.
func (c Config) NormalizePatch(p api.Patch) (api.Patch, error) {
	body, err := c.normalize(p, true)
	if err != nil {
		return nil, err
	}
	return api.Patch(body), nil
}

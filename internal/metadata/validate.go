package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// NonFieldErrors is the FieldErrors key for record-level failures.
const NonFieldErrors = "non_field_errors"

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	if field == "" {
		field = NonFieldErrors
	}
	e[field] = append(e[field], msg)
}

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e[k], " "))
	}
	return strings.Join(parts, "; ")
}

// Values are validated, typed field values: string, bool, decimal.Decimal,
// int64 for ref fields, []int64 for refs fields, or nil.
type Values map[string]any

const (
	msgNull     = "This field may not be null."
	msgString   = "Not a valid string."
	msgBoolean  = "Must be a valid boolean."
	msgDecimal  = "A valid number is required."
	msgPKFormat = "Incorrect type. Expected pk value, received %s."
	msgList     = "Expected a list of items but got type \"%s\"."
)

// Validate coerces a payload to the kind's field types and runs the kind's rules.
// On create, absent fields get their defaults; on update they are left out.
// The id key and keys the kind does not declare are ignored.
func (k *Kind) Validate(payload map[string]any, isCreate bool) (Values, FieldErrors) {
	values := make(Values, len(k.Fields))
	errs := FieldErrors{}

	for _, f := range k.Fields {
		raw, present := payload[f.Name]
		if !present {
			if isCreate {
				values[f.Name] = f.DefaultValue()
			}
			continue
		}
		v, msg := f.Coerce(raw)
		if msg != "" {
			errs.Add(f.Name, msg)
			continue
		}
		values[f.Name] = v
	}

	if len(errs) == 0 {
		for _, v := range EvaluateRules(k.Rules, values, isCreate) {
			errs.Add(v.Field, v.Message)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// Coerce converts a decoded JSON value to the field's Go type. The second
// return is a validation message, empty on success.
func (f Field) Coerce(raw any) (any, string) {
	if raw == nil {
		if f.Nullable || f.Type == TypeRef {
			return nil, ""
		}
		return nil, msgNull
	}

	switch f.Type {
	case TypeString, TypeText:
		switch v := raw.(type) {
		case string:
			return v, ""
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), ""
		case json.Number:
			return v.String(), ""
		}
		return nil, msgString

	case TypeBoolean:
		if b, ok := coerceBool(raw); ok {
			return b, ""
		}
		return nil, msgBoolean

	case TypeDecimal:
		switch v := raw.(type) {
		case float64:
			return decimal.NewFromFloat(v), ""
		case json.Number:
			if d, err := decimal.NewFromString(v.String()); err == nil {
				return d, ""
			}
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
				return d, ""
			}
		}
		return nil, msgDecimal

	case TypeRef:
		if id, ok := ToID(raw); ok {
			return id, ""
		}
		return nil, fmt.Sprintf(msgPKFormat, jsonTypeName(raw))

	case TypeRefs:
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Sprintf(msgList, jsonTypeName(raw))
		}
		ids := make([]int64, 0, len(items))
		seen := make(map[int64]bool, len(items))
		for _, item := range items {
			id, ok := ToID(item)
			if !ok {
				return nil, fmt.Sprintf(msgPKFormat, jsonTypeName(item))
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return ids, ""
	}

	return raw, ""
}

// ToID converts a JSON number or numeric string to a record id.
func ToID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return id, err == nil
	}
	return 0, false
}

func coerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		if b == 1 {
			return true, true
		}
		if b == 0 {
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off":
			return false, true
		}
	}
	return false, false
}

// jsonTypeName names a decoded JSON value the way API clients see it in messages.
func jsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "str"
	case bool:
		return "bool"
	case float64, json.Number:
		return "float"
	case map[string]any:
		return "dict"
	case []any:
		return "list"
	case nil:
		return "NoneType"
	}
	return fmt.Sprintf("%T", v)
}

package revision

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoValue is the inner error of a DeserializationError for an empty or null
// serialized revision
var ErrNoValue = errors.New("serialized revision holds no value")

// Method names the quoting applied to a serialized revision before decoding
type Method int

const (
	// WithoutQuotations decodes the serialized string as is
	WithoutQuotations Method = iota
	// WithQuotations wraps the serialized string in exactly one pair of double quotes
	WithQuotations
)

const (
	withQuotationsText    = "WITH_QUOTATIONS"
	withoutQuotationsText = "WITHOUT_QUOTATIONS"
)

func (m Method) String() string {
	if m == WithQuotations {
		return withQuotationsText
	}
	return withoutQuotationsText
}

// MarshalText implements encoding.TextMarshaler
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Method) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case withQuotationsText:
		*m = WithQuotations
	case withoutQuotationsText, "":
		*m = WithoutQuotations
	default:
		return fmt.Errorf("unknown deserialization method %q", string(text))
	}
	return nil
}

// Opposite returns the other method
func (m Method) Opposite() Method {
	if m == WithQuotations {
		return WithoutQuotations
	}
	return WithQuotations
}

// Apply returns serialized transformed according to the method
func (m Method) Apply(serialized string) string {
	if m == WithQuotations {
		return AddQuotations(serialized)
	}
	return serialized
}

// AddQuotations strips one leading and one trailing double quote, if present,
// and wraps the result in a single pair of double quotes.
func AddQuotations(value string) string {
	value = strings.TrimPrefix(value, `"`)
	value = strings.TrimSuffix(value, `"`)
	return `"` + value + `"`
}

// Decode rebuilds a revision of the named type from its serialized form. The
// preferred method is tried first and its opposite second. The method that
// succeeded is returned so callers can prefer it next time.
func Decode(resolver TypeResolver, unmarshal UnmarshalFunc, typeName, serialized string, preferred Method) (Revision, Method, error) {
	kind, err := resolver.Resolve(typeName)
	if err != nil {
		return nil, preferred, err
	}

	if isAbsent(serialized) {
		return nil, preferred, &DeserializationError{
			TypeName:   typeName,
			Serialized: serialized,
			InnerError: ErrNoValue,
		}
	}

	var lastErr error
	for _, method := range []Method{preferred, preferred.Opposite()} {
		v, err := kind.Decode([]byte(method.Apply(serialized)), unmarshal)
		if err != nil {
			lastErr = err
			continue
		}

		rev, ok := v.(Revision)
		if !ok {
			return nil, preferred, &DeserializationError{
				TypeName:   typeName,
				Serialized: serialized,
				InnerError: fmt.Errorf("%T is not an ordered revision", v),
			}
		}
		return rev, method, nil
	}

	return nil, preferred, &DeserializationError{
		TypeName:   typeName,
		Serialized: serialized,
		InnerError: lastErr,
	}
}

// isAbsent reports whether serialized is empty or a JSON null, quoted or not
func isAbsent(serialized string) bool {
	s := strings.TrimSpace(serialized)
	return s == "" || s == "null" || s == `""` || s == `"null"`
}

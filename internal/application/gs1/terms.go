package gs1

import (
	"strings"

	"github.com/erp/gs1bridge/internal/domain/gs1"
)

// TermResolver maps internal act type codes to GS1 code values
type TermResolver interface {
	// OrderTypeCode returns nil when the type has no GS1 equivalent
	OrderTypeCode(typeCode string) *gs1.Code
}

// StaticTermResolver resolves codes from a configured map. Type codes match
// case-insensitively since configuration keys arrive lowercased.
type StaticTermResolver struct {
	codes    map[string]string
	codeList string
}

// NewStaticTermResolver creates a resolver from the configured order type codes
func NewStaticTermResolver(opts Options) *StaticTermResolver {
	codes := make(map[string]string, len(opts.OrderTypeCodes))
	for k, v := range opts.OrderTypeCodes {
		codes[strings.ToLower(k)] = v
	}
	return &StaticTermResolver{codes: codes, codeList: opts.OrderTypeCodeList}
}

func (r *StaticTermResolver) OrderTypeCode(typeCode string) *gs1.Code {
	value, ok := r.codes[strings.ToLower(typeCode)]
	if !ok || value == "" {
		return nil
	}
	return &gs1.Code{CodeListVersion: r.codeList, Value: value}
}

package typedjson

import "strings"

// OptionKey names a recognised conversion option.
type OptionKey string

const (
	// OptionPreserveNull keeps explicit nulls instead of treating them as absent.
	OptionPreserveNull OptionKey = "preserveNull"
)

// optionDefaults holds the hard-coded fallback per key.
var optionDefaults = map[OptionKey]bool{
	OptionPreserveNull: false,
}

// Options is a set of option overrides for one scope. A nil field means the
// scope has no opinion and a less specific scope decides.
//
// Scopes are ordered global < call < type < member; the most specific
// non-nil value wins.
type Options struct {
	PreserveNull *bool
}

// Bool returns a pointer to b, for building Options literals.
func Bool(b bool) *bool { return &b }

// get returns the value held for key, if any.
func (o *Options) get(key OptionKey) *bool {
	if o == nil {
		return nil
	}
	switch key {
	case OptionPreserveNull:
		return o.PreserveNull
	}
	return nil
}

// IsEmpty reports whether o carries no overrides.
func (o *Options) IsEmpty() bool {
	return o == nil || o.PreserveNull == nil
}

// ResolveOption returns the most specific value of key across scopes, which
// must be ordered least to most specific. Nil scopes are skipped.
func ResolveOption(key OptionKey, scopes ...*Options) bool {
	for i := len(scopes) - 1; i >= 0; i-- {
		if v := scopes[i].get(key); v != nil {
			return *v
		}
	}
	return optionDefaults[key]
}

// ExtractOptions filters an arbitrary settings bag down to the recognised
// option keys. It returns false when no recognised key is present, which
// distinguishes "no override" from "override to the default".
func ExtractOptions(raw map[string]any) (*Options, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var o Options
	found := false
	for key := range optionDefaults {
		v, ok := lookupFold(raw, string(key))
		if !ok {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			continue
		}
		switch key {
		case OptionPreserveNull:
			o.PreserveNull = Bool(b)
		}
		found = true
	}
	if !found {
		return nil, false
	}
	return &o, true
}

// lookupFold finds key in raw, falling back to a case-insensitive match so
// that settings loaded from case-folding sources (env vars, viper) resolve.
func lookupFold(raw map[string]any, key string) (any, bool) {
	if v, ok := raw[key]; ok {
		return v, true
	}
	for k, v := range raw {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

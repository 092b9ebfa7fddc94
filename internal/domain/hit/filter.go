package hit

import "errors"

// ErrEmptyFilter is returned when a filter matches by nothing.
var ErrEmptyFilter = errors.New("filter has no criteria")

// Filter selects hits for removal.
type Filter struct {
	fields map[string]string
	pred   func(Hit) bool
	exact  *Hit
}

// MatchFields matches hits whose named fields all equal the given values.
func MatchFields(fields map[string]string) (Filter, error) {
	if len(fields) == 0 {
		return Filter{}, ErrEmptyFilter
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Filter{fields: cp}, nil
}

// Predicate matches hits for which fn returns true.
func Predicate(fn func(Hit) bool) Filter {
	return Filter{pred: fn}
}

// Equal matches hits carrying exactly the values of h.
func Equal(h Hit) Filter {
	return Filter{exact: &h}
}

// IsZero reports whether the filter was never initialized.
func (f Filter) IsZero() bool {
	return f.fields == nil && f.pred == nil && f.exact == nil
}

// IsExact reports whether the filter matches by value.
func (f Filter) IsExact() bool { return f.exact != nil }

// Matches reports whether h is selected. A zero filter matches nothing.
func (f Filter) Matches(h *Hit) bool {
	switch {
	case f.exact != nil:
		return f.exact.Equal(h)
	case f.pred != nil:
		return f.pred(*h)
	case f.fields != nil:
		for name, want := range f.fields {
			got, ok := h.Field(name)
			if !ok || got != want {
				return false
			}
		}
		return true
	}
	return false
}

package domain

// TriState is the result of a validator predicate
type TriState int

const (
	NotApplicable TriState = iota
	False
	True
)

// String returns the name of the state
func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "n/a"
	}
}

// TriStateOf converts a bool into True or False
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

// MarshalText implements encoding.TextMarshaler
func (t TriState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

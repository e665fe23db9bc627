package validator

import "assetgraph/internal/domain"

// Labels of the built-in validators
const (
	LabelMandatoryValues = "mandatory-values-present"
	LabelAbstractClass   = "class-is-abstract"
	LabelNamed           = "object-is-named"
)

// MandatoryValuesPresent is False when an instance lacks a value for one of
// its mandatory attributes
var MandatoryValuesPresent = PredicateFunc(func(s Subject) domain.TriState {
	if s.Instance == nil {
		return domain.NotApplicable
	}
	for _, attr := range s.Attributes {
		if attr.Mandatory && len(s.Values[attr.Name]) == 0 {
			return domain.False
		}
	}
	return domain.True
})

// ClassIsAbstract reports whether the evaluated class is abstract
var ClassIsAbstract = PredicateFunc(func(s Subject) domain.TriState {
	if s.Instance != nil || s.Class == nil {
		return domain.NotApplicable
	}
	return domain.TriStateOf(s.Class.Abstract)
})

// ObjectIsNamed is True when an instance carries a non-empty name
var ObjectIsNamed = PredicateFunc(func(s Subject) domain.TriState {
	if s.Instance == nil {
		return domain.NotApplicable
	}
	values := s.Values[domain.AttributeName]
	return domain.TriStateOf(len(values) > 0 && values[0] != "")
})

// RegisterBuiltins registers the built-in validators against every class
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		label string
		p     Predicate
	}{
		{LabelMandatoryValues, MandatoryValuesPresent},
		{LabelAbstractClass, ClassIsAbstract},
		{LabelNamed, ObjectIsNamed},
	}
	for _, b := range builtins {
		if err := r.Register(AnyClass, b.label, b.p); err != nil {
			return err
		}
	}
	return nil
}

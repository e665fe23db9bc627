package materializer

import (
	"strconv"
	"time"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// TimestampLayout is the grammar Timestamp values are stored in. Fractional
// seconds after the seconds field are accepted when parsing.
const TimestampLayout = "2006-01-02 15:04:05"

// ConvertScalar converts a raw stored value to its typed form:
//
//	Primitive + Integer  -> int (32-bit range)
//	Primitive + Long     -> int64
//	Primitive + Float    -> float64
//	Primitive + Boolean  -> bool
//	Primitive + other    -> string
//	Date                 -> time.Time from epoch milliseconds, UTC
//	Timestamp            -> time.Time parsed with TimestampLayout, UTC
func ConvertScalar(raw string, mapping domain.MappingKind, semanticType string) (any, error) {
	switch mapping {
	case domain.MappingPrimitive:
		return convertPrimitive(raw, semanticType)
	case domain.MappingDate:
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, conversionError(raw, domain.TypeDate, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	case domain.MappingTimestamp:
		t, err := time.ParseInLocation(TimestampLayout, raw, time.UTC)
		if err != nil {
			return nil, conversionError(raw, domain.TypeTime, err)
		}
		return t, nil
	case domain.MappingManyToOne, domain.MappingManyToMany, domain.MappingBinary:
		return nil, apperror.NewInvalidArgument(raw, "%s values are not scalar", mapping)
	default:
		return nil, apperror.NewInvalidArgument(raw, "unknown mapping kind %s", mapping)
	}
}

func convertPrimitive(raw, semanticType string) (any, error) {
	switch semanticType {
	case domain.TypeInteger:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, conversionError(raw, semanticType, err)
		}
		return int(v), nil
	case domain.TypeLong:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, conversionError(raw, semanticType, err)
		}
		return v, nil
	case domain.TypeFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, conversionError(raw, semanticType, err)
		}
		return v, nil
	case domain.TypeBoolean:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, conversionError(raw, semanticType, err)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// FormatScalar renders a typed value in its stored form; the inverse of
// ConvertScalar for Date and Timestamp values
func FormatScalar(value any, mapping domain.MappingKind) string {
	t, ok := value.(time.Time)
	if !ok {
		switch v := value.(type) {
		case string:
			return v
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			return ""
		}
	}
	if mapping == domain.MappingTimestamp {
		return t.UTC().Format(TimestampLayout)
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func conversionError(raw, semanticType string, err error) error {
	return apperror.NewInvalidArgument(raw, "value %q can not be converted to %s", raw, semanticType).WithInternal(err)
}

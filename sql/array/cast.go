package array

import (
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/spf13/cast"
)

// ErrConvert mirrors the original engine's ConvertError::ParseInt: a
// value arriving from an untyped external source (CSV field, generator
// fill) could not be coerced into the array's declared kind.
var ErrConvert = errors.NewKind("failed to convert %q to %s: %s")

func castStrToInt32(s string) (int32, error) {
	n, err := cast.ToInt32E(s)
	if err != nil {
		return 0, ErrConvert.New(s, "int32", err)
	}
	return n, nil
}

func castStrToBool(s string) (bool, error) {
	v, err := cast.ToBoolE(s)
	if err != nil {
		return false, ErrConvert.New(s, "bool", err)
	}
	return v, nil
}

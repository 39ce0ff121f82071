package utils

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator. decimal.Decimal fields are validated
// as float64 so numeric tags such as gte=0 apply to money values.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// ValidateInput runs struct tags and converts failures to an InvalidInput AppError.
func ValidateInput(input any) error {
	if err := GetValidator().Struct(input); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return NewAppError(KindInvalidInput, "invalid input: %s", formatValidationErrors(ProcessValidationErrors(ve)))
		}
		return WrapAppError(KindInvalidInput, err, "invalid input")
	}
	return nil
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Namespace()] = ve.Tag()
	}
	return errorResponse
}

func formatValidationErrors(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		field := k
		// drop the root struct name from the namespace
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		parts = append(parts, field+" failed "+m[k])
	}
	return strings.Join(parts, ", ")
}

// HasMoneyScale reports whether d needs no more than two fraction digits.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(RoundMoney(d))
}

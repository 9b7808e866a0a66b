package order

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxAmount is the first value that no longer fits NUMERIC(14,2).
var maxAmount = decimal.New(1, 12)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

type orderInput struct {
	CustomerName string          `json:"customerName" validate:"required,max=255"`
	Amount       decimal.Decimal `json:"amount" validate:"gte=0"`
}

func validateOrder(customerName string, amount decimal.Decimal) error {
	err := validate.Struct(orderInput{CustomerName: customerName, Amount: amount})
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Reason: reason(verrs[0])}
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	// Float conversion cannot see sub-cent negatives or scale, so check exactly.
	switch {
	case amount.IsNegative():
		return &ValidationError{Field: "amount", Reason: "must be non-negative"}
	case !amount.Equal(amount.Round(2)):
		return &ValidationError{Field: "amount", Reason: "must have at most 2 decimal places"}
	case amount.GreaterThanOrEqual(maxAmount):
		return &ValidationError{Field: "amount", Reason: "is too large"}
	}
	return nil
}

func validateFile(file *File, maxBytes int64) error {
	if file.Empty() {
		return &ValidationError{Field: "file", Reason: "is required"}
	}
	if maxBytes > 0 && int64(len(file.Data)) > maxBytes {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("exceeds %d bytes", maxBytes)}
	}
	return nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be non-negative"
	default:
		return "is invalid"
	}
}

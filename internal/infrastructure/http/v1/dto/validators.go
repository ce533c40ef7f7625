package dto

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"oilmill/internal/domain/bottling"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/finance"
	"oilmill/internal/domain/resolver"
)

// RegisterValidators installs the custom binding tags into gin's validator:
// sku, itemtype, expensetype and role. decimal.Decimal fields are validated
// as numbers so gt/gte work on money.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}

// Register installs the custom tags into v.
func Register(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	tags := map[string]validator.Func{
		"sku": func(fl validator.FieldLevel) bool {
			_, ok := bottling.LookupSKU(fl.Field().String())
			return ok
		},
		"itemtype": func(fl validator.FieldLevel) bool {
			return catalog.ItemType(fl.Field().String()).Valid()
		},
		"expensetype": func(fl validator.FieldLevel) bool {
			return finance.ExpenseType(fl.Field().String()).Valid()
		},
		"role": func(fl validator.FieldLevel) bool {
			return resolver.Role(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// Package bottling converts bulk oil and empty containers into finished goods.
package bottling

import (
	"regexp"
	"strings"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/resolver"
)

// Supported SKUs.
const (
	SKU1LBottle = "1L Bottle"
	SKU5LTin    = "5L Tin"
	SKU15LTin   = "15L Tin"
)

// SKU describes a bottled product.
type SKU struct {
	Name          string         `json:"sku"`
	LitersPerUnit types.Quantity `json:"litersPerUnit"`
	Empty         resolver.Role  `json:"emptyRole"`
	Finished      resolver.Role  `json:"finishedRole"`
}

// SKUs lists the supported SKUs.
var SKUs = []SKU{
	{SKU1LBottle, types.Qty(1), resolver.RoleEmpty1LBottle, resolver.RoleFinished1LBottle},
	{SKU5LTin, types.Qty(5), resolver.RoleEmpty5LTin, resolver.RoleFinished5LTin},
	{SKU15LTin, types.Qty(15), resolver.RoleEmpty15LTin, resolver.RoleFinished15LTin},
}

// LookupSKU finds a supported SKU by name, ignoring case and spacing.
func LookupSKU(name string) (SKU, bool) {
	norm := strings.Join(strings.Fields(name), " ")
	for _, s := range SKUs {
		if strings.EqualFold(s.Name, norm) {
			return s, true
		}
	}
	return SKU{}, false
}

var litersPattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?|\.\d+)\s*l`)

// ParseLitersPerUnit returns the leading number before "L" in a SKU name:
// "1L Bottle" is 1, "5L Tin" is 5, "15L Tin" is 15.
func ParseLitersPerUnit(sku string) (types.Quantity, error) {
	m := litersPattern.FindStringSubmatch(sku)
	if m == nil {
		return 0, apperror.NewValidation("cannot parse liters per unit from SKU " + sku).WithDetail("sku", sku)
	}
	q, err := types.ParseQuantity(m[1])
	if err != nil || !q.IsPositive() {
		return 0, apperror.NewValidation("liters per unit must be positive").WithDetail("sku", sku)
	}
	return q, nil
}

// LitersFor returns the bulk oil needed to fill units of sku.
func LitersFor(sku string, units types.Quantity) (types.Quantity, error) {
	per, err := ParseLitersPerUnit(sku)
	if err != nil {
		return 0, err
	}
	liters, err := per.CheckedMul(units)
	if err != nil {
		return 0, apperror.NewValidation("bottling quantity exceeds the supported range").WithDetail("sku", sku)
	}
	return liters, nil
}

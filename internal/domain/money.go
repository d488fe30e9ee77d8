package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const minorUnitExponent = 2

// MinorUnits конвертирует десятичную сумму (ровно 2 знака после запятой) в целые минорные
// единицы. Суммы с большей точностью отклоняются: молчаливое округление денег недопустимо.
func MinorUnits(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(minorUnitExponent)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), minorUnitExponent)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s is out of range", d.String())
	}
	return scaled.IntPart(), nil
}

// DecimalFromMinor конвертирует минорные единицы обратно в десятичную сумму для внешней границы
// (JSON, API провайдеров).
func DecimalFromMinor(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).Shift(-minorUnitExponent)
}

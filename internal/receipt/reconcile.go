package receipt

import "github.com/shopspring/decimal"

// RemainingAfterPayment is the balance left on one obligation after
// paying paidNow against it, clamped at zero.
func RemainingAfterPayment(originalRemaining, paidNow decimal.Decimal) decimal.Decimal {
	return maxZero(originalRemaining.Sub(paidNow))
}

// AdjustFetchedTotal subtracts the amount just paid from a freshly
// fetched aggregate debt total, capped by the balance that existed before
// the payment and clamped at zero. The fetch may race the settlement
// write, so the fetched total can still include the amount that was just
// paid; subtracting min(paidNow, remainingBefore) avoids double-counting
// without ever going negative.
func AdjustFetchedTotal(fetchedTotal, paidNow, remainingBefore decimal.Decimal) decimal.Decimal {
	sub := decimal.Min(paidNow, remainingBefore)
	return maxZero(fetchedTotal.Sub(sub))
}

// OtherDebtsAfterPayment is the customer's aggregate debt outside the
// obligation on the receipt, clamped at zero even when the fresh fetch
// underreports.
func OtherDebtsAfterPayment(customerTotalAfterPayment, remainingAfterPayment decimal.Decimal) decimal.Decimal {
	return maxZero(customerTotalAfterPayment.Sub(remainingAfterPayment))
}

// ReconcileSingle computes the two figures of a standalone (single
// installment) receipt. fetchedTotal is the aggregate from the
// post-payment summary fetch; when that fetch failed, cachedTotal is the
// customer-level cached debt total, if any. With neither available the
// aggregate figure is nil, never a guessed zero.
func ReconcileSingle(originalRemaining, paidNow decimal.Decimal, fetchedTotal, cachedTotal *decimal.Decimal) (remainingAfter decimal.Decimal, otherDebts *decimal.Decimal) {
	remainingAfter = RemainingAfterPayment(originalRemaining, paidNow)

	total := fetchedTotal
	if total == nil {
		total = cachedTotal
	}
	if total == nil {
		return remainingAfter, nil
	}

	adjusted := AdjustFetchedTotal(*total, paidNow, originalRemaining)
	other := OtherDebtsAfterPayment(adjusted, remainingAfter)
	return remainingAfter, &other
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

package tax

// Package tax computes inclusive VAT on integer satang. Shelf prices already
// contain VAT, so the tax portion is extracted, never added on top.

// Line is the minimal view a VAT computation needs of a sale line.
type Line struct {
	TotalCents int64
	Exempt     bool
}

// Breakdown partitions a cart into VAT-able and exempt subtotals plus the
// extracted VAT amount. Subtotal() is the single source for the sale total;
// callers must not re-derive it with their own rounding.
type Breakdown struct {
	VatableSubtotalCents int64
	ExemptSubtotalCents  int64
	VatAmountCents       int64
	RatePercent          int
}

func (b Breakdown) SubtotalCents() int64 {
	return b.VatableSubtotalCents + b.ExemptSubtotalCents
}

// Compute extracts inclusive VAT: vat = round(vatable * rate / (100 + rate)),
// half-up on satang. A rate of 0 yields a zero VAT amount with everything in
// the vatable bucket's subtotal untouched.
func Compute(lines []Line, ratePercent int) Breakdown {
	b := Breakdown{RatePercent: ratePercent}
	for _, ln := range lines {
		if ln.Exempt {
			b.ExemptSubtotalCents += ln.TotalCents
		} else {
			b.VatableSubtotalCents += ln.TotalCents
		}
	}
	if ratePercent > 0 && b.VatableSubtotalCents > 0 {
		num := b.VatableSubtotalCents * int64(ratePercent)
		den := int64(100 + ratePercent)
		b.VatAmountCents = (num + den/2) / den
	}
	return b
}

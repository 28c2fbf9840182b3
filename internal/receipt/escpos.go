package receipt

import (
	"fmt"
	"strings"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

// 58mm-class thermal printers at font A fit 48 columns.
const Width = 48

// Raw ESC/POS command sequences. Text in between is plain bytes with '\n'
// line feeds.
var (
	cmdInit        = []byte{0x1b, 0x40}       // ESC @
	cmdAlignLeft   = []byte{0x1b, 0x61, 0x00} // ESC a 0
	cmdAlignCenter = []byte{0x1b, 0x61, 0x01} // ESC a 1
	cmdBoldOn      = []byte{0x1b, 0x45, 0x01} // ESC E 1
	cmdBoldOff     = []byte{0x1b, 0x45, 0x00} // ESC E 0
	cmdUnderOn     = []byte{0x1b, 0x2d, 0x01} // ESC - 1
	cmdUnderOff    = []byte{0x1b, 0x2d, 0x00} // ESC - 0
	cmdSizeNormal  = []byte{0x1d, 0x21, 0x00} // GS ! 0x00
	cmdSizeDouble  = []byte{0x1d, 0x21, 0x11} // GS ! 0x11 (2x both)
	cmdSizeQuad    = []byte{0x1d, 0x21, 0x22} // GS ! 0x22
	cmdCutFull     = []byte{0x1d, 0x56, 0x00} // GS V 0
	cmdCutPartial  = []byte{0x1d, 0x56, 0x01} // GS V 1
)

// cmdDrawerKick pulses drawer pin 2 (ESC p 0, 25ms on, 250ms off).
var cmdDrawerKick = []byte{0x1b, 0x70, 0x00, 0x19, 0xfa}

// Encoder renders committed sales into ESC/POS byte streams. It never
// mutates the record it is given; a reprint of the same sale produces an
// identical stream.
type Encoder struct {
	Profile domain.StoreProfile
}

func NewEncoder(profile domain.StoreProfile) *Encoder {
	return &Encoder{Profile: profile}
}

// DrawerKick returns the standalone pulse command for drawer pin 2.
func DrawerKick() []byte {
	out := make([]byte, len(cmdDrawerKick))
	copy(out, cmdDrawerKick)
	return out
}

func money(cents int64) string {
	neg := ""
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", neg, cents/100, cents%100)
}

// leftRight pads a label/value pair to the full print width.
func leftRight(left, right string) string {
	gap := Width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func divider() string {
	return strings.Repeat("-", Width)
}

type builder struct {
	buf []byte
}

func (b *builder) cmd(c []byte) { b.buf = append(b.buf, c...) }

func (b *builder) line(s string) { b.buf = append(b.buf, s...); b.buf = append(b.buf, '\n') }

func (b *builder) feed(n int) { b.buf = append(b.buf, strings.Repeat("\n", n)...) }

// Encode renders the full receipt. Layout is deterministic: header, sale
// metadata, item lines, totals, payment detail, loyalty block, footer, cut.
// The VAT block appears only when a VAT amount was actually extracted.
func (e *Encoder) Encode(sale domain.SaleRecord) []byte {
	b := &builder{}
	b.cmd(cmdInit)

	b.cmd(cmdAlignCenter)
	b.cmd(cmdBoldOn)
	b.cmd(cmdSizeDouble)
	b.line(e.Profile.Name)
	b.cmd(cmdSizeNormal)
	b.cmd(cmdBoldOff)
	if e.Profile.Address != "" {
		b.line(e.Profile.Address)
	}
	if e.Profile.Phone != "" {
		b.line("Tel: " + e.Profile.Phone)
	}
	if e.Profile.TaxID != "" {
		b.line("Tax ID: " + e.Profile.TaxID)
	}

	b.cmd(cmdAlignLeft)
	b.line(divider())
	b.line(leftRight("Receipt "+sale.InvoiceNo, sale.CreatedAt.Format("02/01/2006 15:04")))
	b.line(leftRight("Terminal "+sale.TerminalID, "Shift "+sale.ShiftID))
	if sale.QueueNumber > 0 {
		b.line(fmt.Sprintf("Queue %d", sale.QueueNumber))
	}
	b.line(divider())

	for _, ln := range sale.Lines {
		b.line(ln.Name)
		qty := fmt.Sprintf("  %d x %s", ln.Qty, money(ln.UnitPriceCents))
		b.line(leftRight(qty, money(ln.LineTotalCents)))
		if ln.Instruction != "" {
			b.line("  * " + ln.Instruction)
		}
	}

	b.line(divider())
	b.line(leftRight("Subtotal", money(sale.SubtotalCents)))
	if sale.DiscountCents > 0 {
		b.line(leftRight(fmt.Sprintf("Discount (%d pts)", sale.PointsRedeemed), "-"+money(sale.DiscountCents)))
	}
	if sale.VatAmountCents > 0 {
		b.line(leftRight(fmt.Sprintf("  VAT-able (incl. VAT %d%%)", sale.VatRatePercent), money(sale.VatableSubtotalCents)))
		if sale.ExemptSubtotalCents > 0 {
			b.line(leftRight("  VAT-exempt", money(sale.ExemptSubtotalCents)))
		}
		b.line(leftRight(fmt.Sprintf("  VAT %d%%", sale.VatRatePercent), money(sale.VatAmountCents)))
	}

	b.cmd(cmdBoldOn)
	b.cmd(cmdSizeDouble)
	b.line(leftRight("TOTAL", money(sale.NetTotalCents)))
	b.cmd(cmdSizeNormal)
	b.cmd(cmdBoldOff)

	switch sale.Payment.Method {
	case domain.PayCash:
		b.line(leftRight("Cash", money(sale.Payment.TenderedCents)))
		b.line(leftRight("Change", money(sale.Payment.ChangeCents)))
	case domain.PayQR:
		b.line(leftRight("Paid by", "QR"))
	case domain.PayCredit:
		b.line(leftRight("Paid by", "Credit card"))
	}

	if sale.PointsEarned > 0 || sale.PointsRedeemed > 0 {
		b.line(divider())
		if sale.PointsEarned > 0 {
			b.line(leftRight("Points earned", fmt.Sprintf("%d", sale.PointsEarned)))
		}
		if sale.PointsRedeemed > 0 {
			b.line(leftRight("Points redeemed", fmt.Sprintf("%d", sale.PointsRedeemed)))
		}
	}

	b.line(divider())
	b.cmd(cmdAlignCenter)
	if sale.Status == domain.SaleStatusVoided {
		b.cmd(cmdUnderOn)
		b.line("*** VOIDED ***")
		b.cmd(cmdUnderOff)
	}
	if e.Profile.Footer != "" {
		b.line(e.Profile.Footer)
	}
	b.feed(3)
	b.cmd(cmdCutPartial)
	return b.buf
}

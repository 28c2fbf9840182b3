package receipt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

func sampleSale() domain.SaleRecord {
	return domain.SaleRecord{
		InvoiceNo:            "INV-2601-0042",
		Status:               domain.SaleStatusCommitted,
		CreatedAt:            time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC),
		TerminalID:           "T1",
		ShiftID:              "shift-1",
		Lines: []domain.SaleLine{
			{Name: "Paracetamol 500mg", Qty: 2, UnitPriceCents: 3500, LineTotalCents: 7000, Instruction: "take after meals"},
			{Name: "Gauze pads", Qty: 1, UnitPriceCents: 3700, LineTotalCents: 3700, VatExempt: true},
		},
		SubtotalCents:        10700,
		VatableSubtotalCents: 7000,
		ExemptSubtotalCents:  3700,
		VatAmountCents:       458,
		VatRatePercent:       7,
		NetTotalCents:        10700,
		Payment:              domain.Payment{Method: domain.PayCash, TenderedCents: 20000, ChangeCents: 9300},
	}
}

func TestEncodeFramesAndCommands(t *testing.T) {
	enc := NewEncoder(domain.StoreProfile{Name: "Ncare Pharmacy", Footer: "Get well soon"})
	out := enc.Encode(sampleSale())

	if !bytes.HasPrefix(out, []byte{0x1b, 0x40}) {
		t.Fatal("stream must start with ESC @ init")
	}
	if !bytes.HasSuffix(out, []byte{0x1d, 0x56, 0x01}) {
		t.Fatal("stream must end with a partial cut")
	}
	for _, want := range [][]byte{
		{0x1b, 0x61, 0x01}, // center align for header
		{0x1b, 0x45, 0x01}, // bold on
		{0x1d, 0x21, 0x11}, // double size for the total
		{0x1d, 0x21, 0x00}, // back to normal size
	} {
		if !bytes.Contains(out, want) {
			t.Fatalf("stream missing command % x", want)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	enc := NewEncoder(domain.StoreProfile{Name: "Ncare Pharmacy"})
	sale := sampleSale()
	if !bytes.Equal(enc.Encode(sale), enc.Encode(sale)) {
		t.Fatal("reprints must be byte-identical")
	}
}

func TestEncodeCashShowsTenderedAndChange(t *testing.T) {
	enc := NewEncoder(domain.StoreProfile{Name: "Ncare Pharmacy"})
	text := string(enc.Encode(sampleSale()))

	for _, want := range []string{"Cash", "200.00", "Change", "93.00", "TOTAL", "107.00"} {
		if !strings.Contains(text, want) {
			t.Fatalf("receipt missing %q", want)
		}
	}
}

func TestEncodeVatBlockOnlyWhenCharged(t *testing.T) {
	enc := NewEncoder(domain.StoreProfile{Name: "Ncare Pharmacy"})

	sale := sampleSale()
	if !strings.Contains(string(enc.Encode(sale)), "VAT 7%") {
		t.Fatal("expected VAT block when VAT was extracted")
	}

	sale.VatAmountCents = 0
	if strings.Contains(string(enc.Encode(sale)), "VAT 7%") {
		t.Fatal("VAT block must be omitted when no VAT was extracted")
	}
}

func TestEncodeMarksVoidedSales(t *testing.T) {
	enc := NewEncoder(domain.StoreProfile{Name: "Ncare Pharmacy"})
	sale := sampleSale()
	sale.Status = domain.SaleStatusVoided

	if !strings.Contains(string(enc.Encode(sale)), "*** VOIDED ***") {
		t.Fatal("voided sale reprint must carry the void banner")
	}
}

func TestEncodeLinesFitWidth(t *testing.T) {
	got := leftRight("Subtotal", "107.00")
	if len(got) != Width {
		t.Fatalf("padded line length = %d, want %d", len(got), Width)
	}
	if !strings.HasPrefix(got, "Subtotal") || !strings.HasSuffix(got, "107.00") {
		t.Fatalf("unexpected layout: %q", got)
	}
}

func TestDrawerKickBytes(t *testing.T) {
	want := []byte{0x1b, 0x70, 0x00, 0x19, 0xfa}
	if got := DrawerKick(); !bytes.Equal(got, want) {
		t.Fatalf("drawer kick = % x, want % x", got, want)
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		10700:  "107.00",
		-2500:  "-25.00",
		123456: "1234.56",
	}
	for cents, want := range cases {
		if got := money(cents); got != want {
			t.Fatalf("money(%d) = %q, want %q", cents, got, want)
		}
	}
}

package models

import (
	"math"
	"testing"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusDraft, OrderStatusDraft, true},
		{OrderStatusDraft, OrderStatusFinalized, true},
		{OrderStatusDraft, OrderStatusSyncError, true},
		{OrderStatusSyncError, OrderStatusDraft, true},
		{OrderStatusSyncError, OrderStatusFinalized, true},
		{OrderStatusFinalized, OrderStatusFinalized, true},
		{OrderStatusFinalized, OrderStatusDraft, false},
		{OrderStatusFinalized, OrderStatusSyncError, false},
		{OrderStatusDraft, OrderStatus("shipped"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_Status(t *testing.T) {
	tests := []struct {
		name    string
		status  OrderStatus
		isDraft bool
		isFinal bool
		canEdit bool
	}{
		{"draft", OrderStatusDraft, true, false, true},
		{"finalized", OrderStatusFinalized, false, true, false},
		{"sync_error", OrderStatusSyncError, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.status}
			if got := o.IsDraft(); got != tt.isDraft {
				t.Errorf("IsDraft() = %v, want %v", got, tt.isDraft)
			}
			if got := o.IsFinal(); got != tt.isFinal {
				t.Errorf("IsFinal() = %v, want %v", got, tt.isFinal)
			}
			if got := o.CanEdit(); got != tt.canEdit {
				t.Errorf("CanEdit() = %v, want %v", got, tt.canEdit)
			}
		})
	}
}

func TestOrderItem_LineTotal(t *testing.T) {
	item := &OrderItem{Qty: 2, Price: 150, DiscountPercent: 10}

	if got := item.Subtotal(); got != 300 {
		t.Errorf("Subtotal() = %f, want 300", got)
	}
	if got := RoundMoney(item.DiscountAmount()); got != 30 {
		t.Errorf("DiscountAmount() = %f, want 30", got)
	}
	if got := RoundMoney(item.LineTotal()); got != 270 {
		t.Errorf("LineTotal() = %f, want 270", got)
	}
}

func TestComputeTotals(t *testing.T) {
	items := []OrderItem{
		{Qty: 2, Price: 150},                      // 300
		{Qty: 1, Price: 85, DiscountPercent: 20},  // 68
		{Qty: 4, Price: 12.5, DiscountPercent: 0}, // 50
	}
	got := ComputeTotals(items)
	if RoundMoney(got.Subtotal) != 435 {
		t.Errorf("Subtotal = %f, want 435", got.Subtotal)
	}
	if RoundMoney(got.Discount) != 17 {
		t.Errorf("Discount = %f, want 17", got.Discount)
	}
	if RoundMoney(got.Total) != 418 {
		t.Errorf("Total = %f, want 418", got.Total)
	}
	if got.ItemCount != 7 {
		t.Errorf("ItemCount = %d, want 7", got.ItemCount)
	}

	if empty := ComputeTotals(nil); empty != (Totals{}) {
		t.Errorf("ComputeTotals(nil) = %+v, want zero", empty)
	}
}

// Rounding happens once on the sum, not per line.
func TestComputeTotals_NoPerLineRounding(t *testing.T) {
	items := []OrderItem{
		{Qty: 1, Price: 0.005},
		{Qty: 1, Price: 0.005},
		{Qty: 1, Price: 0.005},
	}
	got := ComputeTotals(items)
	if FormatMoney(got.Total) != "0.02" {
		t.Errorf("Total = %s, want 0.02", FormatMoney(got.Total))
	}
}

func TestClampDiscount(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{12.5, 12.5},
		{100, 100},
		{150, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampDiscount(tt.in); got != tt.want {
			t.Errorf("ClampDiscount(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMoney(t *testing.T) {
	if got := FormatMoney(270); got != "270.00" {
		t.Errorf("FormatMoney(270) = %q", got)
	}
	if got := FormatMoney(0.125); got != "0.13" {
		t.Errorf("FormatMoney(0.125) = %q", got)
	}
	if got := ToMinorUnits(12.34); got != 1234 {
		t.Errorf("ToMinorUnits(12.34) = %d", got)
	}
	if got := ToMinorUnits(150); got != 15000 {
		t.Errorf("ToMinorUnits(150) = %d", got)
	}
	if got := RoundMoney(2.675); got != 2.68 {
		t.Errorf("RoundMoney(2.675) = %f", got)
	}
}

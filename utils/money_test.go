package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRound2(t *testing.T) {
	if !Round2(dec("10.005")).Equal(dec("10.01")) {
		t.Errorf("10.005 should round to 10.01, got %s", Round2(dec("10.005")))
	}
	if !Round2(dec("10.004")).Equal(dec("10")) {
		t.Errorf("10.004 should round to 10.00, got %s", Round2(dec("10.004")))
	}
}

func TestClampNonNegative(t *testing.T) {
	if !ClampNonNegative(dec("-3")).IsZero() {
		t.Error("negative values clamp to zero")
	}
	if !ClampNonNegative(dec("3")).Equal(dec("3")) {
		t.Error("positive values pass through")
	}
}

func TestMinDecimal(t *testing.T) {
	if !MinDecimal(dec("2"), dec("5")).Equal(dec("2")) {
		t.Error("expected 2")
	}
	if !MinDecimal(dec("5"), dec("2")).Equal(dec("2")) {
		t.Error("expected 2")
	}
}

func TestIsSettled(t *testing.T) {
	if !IsSettled(dec("100"), dec("100")) {
		t.Error("exact payment settles")
	}
	if !IsSettled(dec("99.99"), dec("100")) {
		t.Error("payment within the 0.01 tolerance settles")
	}
	if IsSettled(dec("99.98"), dec("100")) {
		t.Error("payment outside the tolerance does not settle")
	}
	if !IsSettled(dec("120"), dec("100")) {
		t.Error("overpayment settles")
	}
}

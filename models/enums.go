package models

import "fmt"

type MoneyAccountType string

const (
	MoneyAccountTypeCash   MoneyAccountType = "Cash"
	MoneyAccountTypeBank   MoneyAccountType = "Bank"
	MoneyAccountTypeMobile MoneyAccountType = "Mobile"
)

func ParseMoneyAccountType(s string) (MoneyAccountType, error) {
	switch MoneyAccountType(s) {
	case MoneyAccountTypeCash, MoneyAccountTypeBank, MoneyAccountTypeMobile:
		return MoneyAccountType(s), nil
	}
	return "", fmt.Errorf("%s is not a valid money account type", s)
}

// ValuationView selects one of the two parallel purchase valuations.
// Both valuations share quantities; only unit costs and payment fields differ.
type ValuationView string

const (
	ValuationViewReal   ValuationView = "Real"
	ValuationViewShadow ValuationView = "Shadow"
)

func ParseValuationView(s string) (ValuationView, error) {
	switch ValuationView(s) {
	case ValuationViewReal, ValuationViewShadow:
		return ValuationView(s), nil
	}
	return "", fmt.Errorf("%s is not a valid valuation view", s)
}

// PaymentMode is how a purchase payment is requested. Exactly one mode is
// active per reconciliation; ManualOverride and AdvanceDrawdown can never be
// combined because a request carries a single mode.
type PaymentMode string

const (
	PaymentModeUnpaid         PaymentMode = "Unpaid"
	PaymentModePartial        PaymentMode = "Partial"
	PaymentModePaid           PaymentMode = "Paid"
	PaymentModeManualOverride PaymentMode = "ManualOverride"
	PaymentModeAdvance        PaymentMode = "AdvanceDrawdown"
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch PaymentMode(s) {
	case PaymentModeUnpaid, PaymentModePartial, PaymentModePaid,
		PaymentModeManualOverride, PaymentModeAdvance:
		return PaymentMode(s), nil
	}
	return "", fmt.Errorf("%s is not a valid payment mode", s)
}

// PaymentStatus is always derived from (paid, total), never set directly.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPartial PaymentStatus = "Partial Paid"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

type PurchaseStatus string

const (
	PurchaseStatusDraft     PurchaseStatus = "Draft"
	PurchaseStatusConfirmed PurchaseStatus = "Confirmed"
	PurchaseStatusVoid      PurchaseStatus = "Void"
)

func ParsePurchaseStatus(s string) (PurchaseStatus, error) {
	switch PurchaseStatus(s) {
	case PurchaseStatusDraft, PurchaseStatusConfirmed, PurchaseStatusVoid:
		return PurchaseStatus(s), nil
	}
	return "", fmt.Errorf("%s is not a valid purchase status", s)
}

// AccountReferenceType tags journal rows with the document that produced them.
type AccountReferenceType string

const (
	AccountReferenceTypePurchase        AccountReferenceType = "PR"
	AccountReferenceTypePurchasePayment AccountReferenceType = "PRP"
	AccountReferenceTypeSupplierAdvance AccountReferenceType = "SAV"
	AccountReferenceTypeAdvanceApplied  AccountReferenceType = "SAA"
	AccountReferenceTypeAccountDeposit  AccountReferenceType = "AD"
)

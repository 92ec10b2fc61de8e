package models

import (
	"fmt"
	"time"
)

// TransactionType is the reason money moved in or out of a child's balance.
type TransactionType string

const (
	TransactionTypeAllowance  TransactionType = "allowance"
	TransactionTypeChore      TransactionType = "chore"
	TransactionTypeSpending   TransactionType = "spending"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// TransactionTypes lists every accepted transaction type.
var TransactionTypes = []TransactionType{
	TransactionTypeAllowance,
	TransactionTypeChore,
	TransactionTypeSpending,
	TransactionTypeAdjustment,
}

// ParseTransactionType validates s as a transaction type.
func ParseTransactionType(s string) (TransactionType, error) {
	for _, t := range TransactionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// BalanceDelta returns the signed change this transaction applies to a
// balance. Spending subtracts; every other type adds.
func (t TransactionType) BalanceDelta(amount float64) float64 {
	if t == TransactionTypeSpending {
		return -amount
	}
	return amount
}

// Transaction is a single movement of money for a child.
type Transaction struct {
	ID          string          `json:"id"`
	ChildID     string          `json:"child_id"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Type        TransactionType `json:"transaction_type"`
	Date        time.Time       `json:"date"`
}

package model

import "time"

// OperationType distinguishes income from expenses.
type OperationType string

const (
	TypeEntry OperationType = "E"
	TypeExit  OperationType = "S"
)

func (t OperationType) Valid() bool {
	return t == TypeEntry || t == TypeExit
}

// Operation is a single dated monetary entry owned by one user.
type Operation struct {
	ID          int64         `json:"id"`
	Description string        `json:"description"`
	Value       Money         `json:"value"`
	Type        OperationType `json:"type"`
	Date        time.Time     `json:"date"`
	UserID      int64         `json:"user_id"`
	UpdatedAt   *time.Time    `json:"updated_at"`
}

// OperationPage is the list response: a window of operations and the balance
// of that window alone.
type OperationPage struct {
	Balance    Money       `json:"balance"`
	Operations []Operation `json:"operations"`
}

// Balance sums entries minus exits over ops.
func Balance(ops []Operation) Money {
	var cents int64
	for _, op := range ops {
		switch op.Type {
		case TypeEntry:
			cents += op.Value.Cents
		case TypeExit:
			cents -= op.Value.Cents
		}
	}
	return Money{Cents: cents}
}

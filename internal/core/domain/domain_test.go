package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   TransactionStatus
		terminal bool
	}{
		{"pending is not terminal", TransactionStatusPending, false},
		{"success is terminal", TransactionStatusSuccess, true},
		{"failed is terminal", TransactionStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := &Transaction{Status: tt.status}
			assert.Equal(t, tt.terminal, txn.IsTerminal())
		})
	}
}

func TestTransaction_IsTopup(t *testing.T) {
	assert.True(t, (&Transaction{Service: ServiceAirtime}).IsTopup())
	assert.True(t, (&Transaction{Service: ServiceData}).IsTopup())
	assert.False(t, (&Transaction{Service: ServiceFunding}).IsTopup())
}

func TestOutcome_IsTerminal(t *testing.T) {
	assert.True(t, OutcomeDelivered.IsTerminal())
	assert.True(t, OutcomeFailed.IsTerminal())
	assert.False(t, OutcomePending.IsTerminal())
	assert.False(t, OutcomeUnreachable.IsTerminal())
}

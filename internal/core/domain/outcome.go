package domain

// Outcome is the normalized classification of a provider response.
// Unreachable covers transport errors and timeouts; it is handled exactly
// like Pending and is never promoted to a terminal failure, because failure
// must only be asserted on an explicit negative response from the provider.
type Outcome string

const (
	OutcomeDelivered   Outcome = "delivered"
	OutcomePending     Outcome = "pending"
	OutcomeFailed      Outcome = "failed"
	OutcomeUnreachable Outcome = "unreachable"
)

// IsTerminal reports whether the outcome resolves a transaction.
func (o Outcome) IsTerminal() bool {
	return o == OutcomeDelivered || o == OutcomeFailed
}

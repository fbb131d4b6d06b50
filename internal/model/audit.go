package model

// Audit event type constants for the circuit event log.
const (
	AuditEventCircuitOpened    = "CIRCUIT_OPENED"
	AuditEventCircuitProbing   = "CIRCUIT_HALF_OPEN"
	AuditEventCircuitRecovered = "CIRCUIT_RECOVERED"
	AuditEventCircuitReset     = "CIRCUIT_RESET"
)

// AuditEventType maps a transition to its audit event type.
// Administrative resets are reported with the reset reason.
func AuditEventType(ev TransitionEvent) string {
	if ev.Reason == ReasonAdministrativeReset {
		return AuditEventCircuitReset
	}
	switch ev.To {
	case StateOpen:
		return AuditEventCircuitOpened
	case StateHalfOpen:
		return AuditEventCircuitProbing
	default:
		return AuditEventCircuitRecovered
	}
}

// ReasonAdministrativeReset is the transition reason used by explicit resets.
const ReasonAdministrativeReset = "administrative reset"

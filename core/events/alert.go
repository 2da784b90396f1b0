package events

// KindSystemAlert identifies a human-readable condition report.
const KindSystemAlert Kind = "alert.system"

// Severity grades system alerts.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SystemAlert carries a human-readable condition with severity.
type SystemAlert struct {
	Base
	Severity Severity
	Message  string
}

// NewSystemAlert creates a system alert event.
func NewSystemAlert(severity Severity, message string) SystemAlert {
	return SystemAlert{Base: newBase(KindSystemAlert), Severity: severity, Message: message}
}

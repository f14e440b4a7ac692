package workflow

// Outcome is the terminal result of one acquisition attempt.
type Outcome struct {
	State State

	// DocumentPath is set on DOCUMENT_READY. It stays empty when the polling
	// window lapsed on an unattended run; that is still a successful outcome,
	// the receipt is recovered later through the re-fetch path.
	DocumentPath string

	// Reason carries the failure or decline detail.
	Reason string

	// Screenshot references a diagnostic image captured at the fault, when
	// the driver produced one.
	Screenshot string
}

// Exit codes. Expected terminal states exit cleanly; user-actionable faults
// are distinguishable from fatal ones.
const (
	ExitOK         = 0
	ExitFailed     = 1
	ExitActionable = 2
)

// ExitCode maps the outcome to the process exit code.
func (o Outcome) ExitCode() int {
	switch o.State {
	case StateAlreadyExists, StateDryRunStop, StateDocumentReady:
		return ExitOK
	case StateDeclined:
		return ExitActionable
	default:
		return ExitFailed
	}
}

package pipeline

type Outcome int

const (
	OutcomeUnexpected Outcome = iota
	OutcomeGreeting
	OutcomeUnclassifiable
	OutcomeClassificationFailed
	OutcomeNotAnswerable
	OutcomeSynthesisFailed
	OutcomeSchemaViolation
	OutcomeExecutionError
	OutcomeEmpty
	OutcomeRows
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGreeting:
		return "greeting"
	case OutcomeUnclassifiable:
		return "unclassifiable"
	case OutcomeClassificationFailed:
		return "classification_failed"
	case OutcomeNotAnswerable:
		return "not_answerable"
	case OutcomeSynthesisFailed:
		return "synthesis_failed"
	case OutcomeSchemaViolation:
		return "schema_violation"
	case OutcomeExecutionError:
		return "execution_error"
	case OutcomeEmpty:
		return "empty"
	case OutcomeRows:
		return "rows"
	default:
		return "unexpected"
	}
}

// Failed reports whether the turn ended without an answer the user can act on.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeUnexpected, OutcomeClassificationFailed, OutcomeSynthesisFailed, OutcomeExecutionError:
		return true
	default:
		return false
	}
}

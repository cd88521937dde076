package session

// State is the lifecycle position of one scan attempt.
type State int

const (
	// Idle waits for the user to start a scan.
	Idle State = iota
	// Capturing converts incoming frames and keeps the latest bitmap.
	Capturing
	// Processing analyzes the latest bitmap. Button presses are ignored.
	Processing
	// Completed holds a recognized board until the next press.
	Completed
	// Failed holds a failed attempt until the next press.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Processing:
		return "processing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// next returns the state a button press moves s to.
func (s State) next() State {
	switch s {
	case Idle:
		return Capturing
	case Capturing:
		return Processing
	case Processing:
		return Processing
	case Completed, Failed:
		return Idle
	default:
		return s
	}
}

// FailureKind separates an attempt that found nothing to read from one that
// broke.
type FailureKind int

const (
	// FailureNone means the attempt did not fail.
	FailureNone FailureKind = iota
	// FailureNoBoard means no board was found in the captured bitmap.
	FailureNoBoard
	// FailureError means conversion, recognition or layout failed.
	FailureError
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return ""
	case FailureNoBoard:
		return "no_board"
	case FailureError:
		return "error"
	default:
		return "unknown"
	}
}

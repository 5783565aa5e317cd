package healmon

// eventType describes an event type.
type eventType = string

const (
	eventWarning          eventType = "warning"
	eventAcquired         eventType = "acquired lock"
	eventShutdown         eventType = "shutdown"
	eventProcessStarted   eventType = "process started"
	eventProcessStartErr  eventType = "process start error"
	eventProcessAdopted   eventType = "process adopted"
	eventProcessReplaced  eventType = "process replaced"
	eventExitClassified   eventType = "exit classified"
	eventProcessRestarted eventType = "process restarted"
	eventRestartFailed    eventType = "restart failed"
	eventCooldownActive   eventType = "cooldown active"
	eventListModify       eventType = "process list modified"
)

// Event is an interface describing known events.
type Event interface {
	Type() string
	event()
}

// NewEvent creates a new event from the given event type. It is used primarily
// for decoding events from its type. Nil is returned if the event type is
// unknown.
func NewEvent(eventType string) Event {
	switch eventType {
	case eventWarning:
		return &EventWarning{}
	case eventAcquired:
		return &EventAcquired{}
	case eventShutdown:
		return &EventShutdown{}
	case eventProcessStarted:
		return &EventProcessStarted{}
	case eventProcessStartErr:
		return &EventProcessStartError{}
	case eventProcessAdopted:
		return &EventProcessAdopted{}
	case eventProcessReplaced:
		return &EventProcessReplaced{}
	case eventExitClassified:
		return &EventExitClassified{}
	case eventProcessRestarted:
		return &EventProcessRestarted{}
	case eventRestartFailed:
		return &EventRestartFailed{}
	case eventCooldownActive:
		return &EventCooldownActive{}
	case eventListModify:
		return &EventProcessListModify{}
	default:
		return nil
	}
}

// EventWarning is emitted when a non-fatal error occurs.
type EventWarning struct {
	Component string `json:"component"`
	Error     string `json:"error"`
}

func (ev *EventWarning) Type() string { return eventWarning }
func (ev *EventWarning) event()       {}

// EventAcquired is emitted when the flock (i.e. write lock on the journal) is
// acquired, which is on startup.
type EventAcquired struct {
	PID int `json:"pid"`
}

func (ev *EventAcquired) Type() string { return eventAcquired }
func (ev *EventAcquired) event()       {}

// EventShutdown is emitted when the supervisor receives a termination signal
// and stops. Monitored processes are left running.
type EventShutdown struct {
	Reason string `json:"reason"`
}

func (ev *EventShutdown) Type() string { return eventShutdown }
func (ev *EventShutdown) event()       {}

// EventProcessStarted is emitted when a process has been started for any
// reason.
type EventProcessStarted struct {
	Name   string `json:"name"`
	PID    int    `json:"pid"`
	Reason string `json:"reason,omitempty"`
}

func (ev *EventProcessStarted) Type() string { return eventProcessStarted }
func (ev *EventProcessStarted) event()       {}

// EventProcessStartError is emitted when a process fails to start for any
// reason.
type EventProcessStartError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (ev *EventProcessStartError) Type() string { return eventProcessStartErr }
func (ev *EventProcessStartError) event()       {}

// EventProcessAdopted is emitted when the supervisor attaches tracking state
// to a process it did not start itself, either one found already running or
// one the user started after a normal exit.
type EventProcessAdopted struct {
	Name   string `json:"name"`
	PID    int    `json:"pid"`
	Reason string `json:"reason,omitempty"`
}

func (ev *EventProcessAdopted) Type() string { return eventProcessAdopted }
func (ev *EventProcessAdopted) event()       {}

// EventProcessReplaced is emitted when a tracked process died but a different
// live instance of the same name was found and adopted in its place. The old
// PID is never classified in this case.
type EventProcessReplaced struct {
	Name   string `json:"name"`
	OldPID int    `json:"old_pid"`
	PID    int    `json:"pid"`
}

func (ev *EventProcessReplaced) Type() string { return eventProcessReplaced }
func (ev *EventProcessReplaced) event()       {}

// EventExitClassified is emitted for every classification of a disappeared
// process, successful or ambiguous, with the observed cause for audit.
type EventExitClassified struct {
	Name     string `json:"name"`
	PID      int    `json:"pid"`
	Decision string `json:"decision"` // "restart" or "suppress"
	Cause    string `json:"cause"`
}

func (ev *EventExitClassified) Type() string { return eventExitClassified }
func (ev *EventExitClassified) event()       {}

// EventProcessRestarted is emitted when a crashed process has been restarted.
type EventProcessRestarted struct {
	Name   string `json:"name"`
	OldPID int    `json:"old_pid"`
	PID    int    `json:"pid"`
}

func (ev *EventProcessRestarted) Type() string { return eventProcessRestarted }
func (ev *EventProcessRestarted) event()       {}

// EventRestartFailed is emitted when a restart after a confirmed crash could
// not be performed.
type EventRestartFailed struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (ev *EventRestartFailed) Type() string { return eventRestartFailed }
func (ev *EventRestartFailed) event()       {}

// EventCooldownActive is emitted when the rate limiter suppressed a restart.
type EventCooldownActive struct {
	Name  string `json:"name"`
	Phase string `json:"phase"` // "before attempt" or "after attempt"
}

func (ev *EventCooldownActive) Type() string { return eventCooldownActive }
func (ev *EventCooldownActive) event()       {}

// EventProcessListModify is emitted when the process list file is modified on
// disk.
type EventProcessListModify struct {
	Op   ProcessListModifyOp `json:"op"`
	File string              `json:"file"`
}

// ProcessListModifyOp contains possible operations observed on the process
// list file.
type ProcessListModifyOp string

const (
	ProcessListCreate ProcessListModifyOp = "create"
	ProcessListRemove ProcessListModifyOp = "remove"
	ProcessListUpdate ProcessListModifyOp = "update"
)

func (ev *EventProcessListModify) Type() string { return eventListModify }
func (ev *EventProcessListModify) event()       {}

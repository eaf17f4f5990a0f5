package protocol

// Events sent from an embedded inspector to its parent.
const (
	EventInspectorStarted = "inspector-started"
	EventInspectorStopped = "inspector-stopped"
	EventSelected         = "selected"
	EventUnselected       = "unselected"
	EventSelection        = "selection"
)

// Commands an embedded inspector accepts from its parent.
const (
	CommandStartInspector  = "start-inspector"
	CommandStopInspector   = "stop-inspector"
	CommandToggleInspector = "toggle-inspector"
)

// Requests with a "<type>-response" reply.
const (
	RequestPing   = "ping"
	RequestExport = "export"
	RequestStatus = "status"
)

// IsCommand reports whether name is one of the inspector commands.
func IsCommand(name string) bool {
	switch name {
	case CommandStartInspector, CommandStopInspector, CommandToggleInspector:
		return true
	}
	return false
}

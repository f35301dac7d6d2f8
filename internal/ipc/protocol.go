package ipc

// CommandStatus asks the running listener for a status snapshot.
const CommandStatus = "status"

type Request struct {
	Command string `json:"command"`
}

// Snapshot describes the running listener at the moment it answered.
type Snapshot struct {
	State       string `json:"state,omitempty"`
	PID         int    `json:"pid,omitempty"`
	MappingFile string `json:"mapping_file,omitempty"`
	Triggers    int    `json:"triggers,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
	Fired       int    `json:"fired,omitempty"`
	LastTrigger string `json:"last_trigger,omitempty"`
	Source      string `json:"source,omitempty"`
	Uptime      string `json:"uptime,omitempty"`
}

// Response is one JSON reply; snapshot fields are inlined beside ok/error.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Snapshot
}

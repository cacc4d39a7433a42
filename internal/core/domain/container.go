package domain

// Container represents a container as reported by the engine.
type Container struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Status string `json:"status"`
	State  string `json:"state"` // running, exited, etc.
}

// LaunchSpec describes the container the launcher should create.
type LaunchSpec struct {
	Name       string
	Image      string
	HostPort   uint16
	GuestPort  uint16
	PublishUDP bool
	// WorkDir is bind-mounted read-only at MountPath inside the container.
	WorkDir   string
	MountPath string
	// Cmd is the process argument vector, e.g. ["run", "-c", <config path>].
	Cmd []string
}

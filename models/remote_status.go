package models

// ConnectionState is the outcome of a connectivity probe.
type ConnectionState string

const (
	ConnectionOK      ConnectionState = "ok"
	ConnectionRefused ConnectionState = "refused"
	ConnectionFailed  ConnectionState = "failed"
)

// ProbeResult is what a live probe learned about an instance.
type ProbeResult struct {
	// Version reported by the server, empty when it could not be queried
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Connection is the probe outcome
	Connection ConnectionState `json:"connection" yaml:"connection"`

	// Message carries the connection error text when Connection is not ok
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// RemoteKind tells which kind of remote backs a RemoteStatus.
type RemoteKind string

const RemoteKindCloud RemoteKind = "cloud"

// RemoteStatus combines a remote instance record with a fresh probe. It is
// rebuilt on every listing and never cached.
type RemoteStatus struct {
	// Name is "org/name"
	Name string `json:"name" yaml:"name"`

	Kind RemoteKind `json:"kind" yaml:"kind"`

	// InstanceID is the control plane identifier for cloud instances
	InstanceID string `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`

	// Host and Port are the routed connection address
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`

	Probe ProbeResult `json:"probe" yaml:"probe"`

	// InstanceStatus is the last status string reported by the control plane
	InstanceStatus string `json:"instance_status,omitempty" yaml:"instance_status,omitempty"`
}

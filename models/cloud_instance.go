package models

// CloudInstance is the control plane's record of a hosted database instance.
// It is created by a provisioning request and only ever mutated by the remote
// system; the CLI reads it when polling and listing.
//
// Example JSON representation:
//
//	{
//	  "id": "c1d3...",
//	  "name": "db1",
//	  "org_slug": "acme",
//	  "dsn": "edgedb://db1--acme.example.cloud",
//	  "status": "available",
//	  "version": "2.0",
//	  "tls_ca": "-----BEGIN CERTIFICATE-----..."
//	}
type CloudInstance struct {
	// ID is the opaque instance identifier assigned by the control plane
	ID string `json:"id" yaml:"id"`

	// Name is the instance name, unique within an organization
	Name string `json:"name" yaml:"name"`

	// Org is the organization slug owning the instance
	Org string `json:"org_slug" yaml:"org_slug"`

	// DSN is the connection string; empty until provisioning finishes
	DSN string `json:"dsn" yaml:"dsn"`

	// Status is free-form server text. Only StatusAvailable is meaningful here.
	Status string `json:"status" yaml:"status"`

	// Version is the server version running on the instance
	Version string `json:"version" yaml:"version"`

	// TLSCA is the PEM encoded CA certificate, when the instance uses a private CA
	TLSCA string `json:"tls_ca,omitempty" yaml:"tls_ca,omitempty"`
}

// StatusAvailable is the only instance status string treated specially: an
// instance is ready for use when it reports this status and carries a DSN.
const StatusAvailable = "available"

// Ref returns the "org/name" reference of the instance.
func (i *CloudInstance) Ref() string {
	return InstanceRef(i.Org, i.Name)
}

// IsAvailable reports whether the instance passed provisioning: it has a
// connection string and the server reports it as available.
func (i *CloudInstance) IsAvailable() bool {
	return i.DSN != "" && i.Status == StatusAvailable
}

// CreateInstanceRequest is the body of POST orgs/{org}/instances.
type CreateInstanceRequest struct {
	Name    string `json:"name" validate:"required,instname"`
	Org     string `json:"org" validate:"required,orgslug"`
	Version string `json:"version" validate:"required"`
}

// UpgradeInstanceRequest is the body of PUT orgs/{org}/instances/{name}.
type UpgradeInstanceRequest struct {
	Name    string `json:"name" validate:"required,instname"`
	Org     string `json:"org" validate:"required,orgslug"`
	Version string `json:"version" validate:"required"`
}

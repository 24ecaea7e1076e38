package cloud

import "evalgo.org/portico/models"

// DefaultPort is the port every cloud instance listens on.
const DefaultPort = 5656

// Credentials are the connection parameters of a cloud instance. They are
// derived on demand and never stored.
type Credentials struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	SecretKey string `json:"secret_key" yaml:"-"`
	TLSCA     string `json:"tls_ca,omitempty" yaml:"tls_ca,omitempty"`
}

// AsCredentials builds credentials for inst from the client's routing and
// secret key. It performs no network I/O.
func AsCredentials(inst *models.CloudInstance, client *Client) *Credentials {
	return &Credentials{
		Host:      client.CloudHost(inst.Org, inst.Name),
		Port:      DefaultPort,
		SecretKey: client.SecretKey(),
		TLSCA:     inst.TLSCA,
	}
}

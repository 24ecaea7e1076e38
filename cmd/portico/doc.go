// Portico manages versioned database instances on the local machine and in
// the cloud.
//
// # Overview
//
// Portico drives two environments from one command line:
//   - Cloud: an asynchronous control plane that creates, upgrades and
//     destroys hosted instances
//   - Portable: server versions installed on this machine and the local
//     instances running them
//
//	┌─────────────────┐
//	│   portico CLI   │
//	│    (cobra)      │
//	└───┬─────────┬───┘
//	    │         │
//	┌───▼─────┐ ┌─▼───────────────┐
//	│ Cloud   │ │ Portable        │
//	│ API     │ │ installs + data │
//	└─────────┘ └─────────────────┘
//
// # Usage
//
// Create and wait for a cloud instance:
//
//	portico cloud create acme/db1 --server-version 2.0
//
// Show the live status of every cloud instance:
//
//	portico cloud status --format yaml
//
// Remove installed versions no instance uses:
//
//	portico server uninstall --all --unused
//
// # Exit Status
//
//   - 0 success
//   - 1 failure
//   - 3 partial success: some matched versions were kept because instances
//     use them, or some cloud instances could not be probed
//
// # Configuration
//
// Configuration can be provided via:
//   - YAML file (./config.yaml, ~/.portico/config.yaml, /etc/portico/config.yaml)
//   - Environment variables (PORTICO_ prefix, e.g. PORTICO_CLOUD_SECRET_KEY)
//   - .env file
//
// Example configuration:
//
//	cloud:
//	  api_url: https://api.portico.cloud/v1/
//	  request_rate: 10
//	  probe_concurrency: 4
//	portable:
//	  installs_dir: /opt/portico/portable
//	logging:
//	  level: debug
//	  format: json
//
// # Cloud API
//
//   - GET    instances/                 - List instances
//   - GET    orgs/{org}/instances/{name} - Get instance
//   - POST   orgs/{org}/instances        - Create instance, returns an operation
//   - PUT    orgs/{org}/instances/{name} - Upgrade instance, returns an operation
//   - DELETE orgs/{org}/instances/{name} - Destroy instance
//   - GET    operations/{id}             - Poll an operation
//
// # Development
//
// Run tests:
//
//	go test ./...
//
// Build the binary:
//
//	go build -o portico ./cmd/portico
package main

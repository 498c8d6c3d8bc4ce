package adapter

// ConnectionConfig contains the configuration for a store connection.
type ConnectionConfig struct {
	// Core identifiers
	DatabaseID string `json:"databaseId" yaml:"databaseId"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`

	// Store type, e.g. "mongodb"
	ConnectionType string `json:"connectionType" yaml:"connectionType"`

	// Connection details
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	Username     string `json:"username,omitempty" yaml:"username,omitempty"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty"`
	DatabaseName string `json:"databaseName" yaml:"databaseName"`

	// SSL/TLS configuration
	SSL         bool   `json:"ssl,omitempty" yaml:"ssl,omitempty"`
	SSLMode     string `json:"sslMode,omitempty" yaml:"sslMode,omitempty"`
	SSLCert     string `json:"sslCert,omitempty" yaml:"sslCert,omitempty"`
	SSLKey      string `json:"sslKey,omitempty" yaml:"sslKey,omitempty"`
	SSLRootCert string `json:"sslRootCert,omitempty" yaml:"sslRootCert,omitempty"`

	// Store-specific options (use sparingly)
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

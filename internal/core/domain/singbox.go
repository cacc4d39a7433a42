package domain

// The sing-box configuration document, limited to the fields this tool
// renders. The container process is the validator: a malformed document
// fails container startup, not config writing.

// LogConfig controls sing-box logging.
type LogConfig struct {
	Disabled  bool   `json:"disabled"`
	Level     string `json:"level"`
	Timestamp bool   `json:"timestamp"`
}

// User is an inbound user entry. anytls authenticates by password.
type User struct {
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
}

// TLSConfig references the certificate material mounted into the container.
type TLSConfig struct {
	Enabled         bool     `json:"enabled"`
	ServerName      string   `json:"server_name,omitempty"`
	CertificatePath string   `json:"certificate_path,omitempty"`
	KeyPath         string   `json:"key_path,omitempty"`
	ALPN            []string `json:"alpn,omitempty"`
}

// Inbound is a single listener definition.
type Inbound struct {
	Type       string     `json:"type"`
	Tag        string     `json:"tag"`
	Listen     string     `json:"listen"`
	ListenPort uint16     `json:"listen_port"`
	Users      []User     `json:"users"`
	TLS        *TLSConfig `json:"tls,omitempty"`
}

// Outbound is a forwarding rule definition.
type Outbound struct {
	Type string `json:"type"`
	Tag  string `json:"tag"`
}

// ServerConfig is the top-level document written to config.json.
type ServerConfig struct {
	Log       LogConfig  `json:"log"`
	Inbounds  []Inbound  `json:"inbounds"`
	Outbounds []Outbound `json:"outbounds"`
}

// InboundTag and UserName are fixed identifiers embedded in every rendered
// config; clients never see them, only the password matters on the wire.
const (
	InboundTag = "anytls-in"
	UserName   = "sbsuger"
)

// NewAnyTLSConfig builds the config document for one anytls inbound backed by
// the mounted certificate pair and a single direct outbound.
func NewAnyTLSConfig(logLevel string, listenPort uint16, secret, sni, certPath, keyPath string) ServerConfig {
	return ServerConfig{
		Log: LogConfig{Level: logLevel, Timestamp: true},
		Inbounds: []Inbound{{
			Type:       "anytls",
			Tag:        InboundTag,
			Listen:     "::",
			ListenPort: listenPort,
			Users:      []User{{Name: UserName, Password: secret}},
			TLS: &TLSConfig{
				Enabled:         true,
				ServerName:      sni,
				CertificatePath: certPath,
				KeyPath:         keyPath,
			},
		}},
		Outbounds: []Outbound{{Type: "direct", Tag: "direct"}},
	}
}

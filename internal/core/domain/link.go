package domain

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// PlaceholderHost is embedded in the connection link when every public-IP
// lookup failed. The operator has to substitute the real address by hand.
const PlaceholderHost = "YOUR_SERVER_IP"

// Deployment is the outcome of a full run: everything the operator needs to
// connect a client, plus the container the run left behind.
type Deployment struct {
	Secret      string
	Host        string
	Port        uint16
	SNI         string
	ContainerID string
}

// Link renders the anytls connection descriptor. The certificate is
// self-signed, so insecure=1 is always set; clients that pin the SNI can
// still verify the common name.
func (d Deployment) Link(tag string) string {
	host := d.Host
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		host = "[" + host + "]"
	}
	if tag == "" {
		tag = "anytls-" + d.Host
	}
	// The secret sits in the userinfo position; query escaping would turn
	// a space into a literal "+" there, so encode it as userinfo proper.
	return fmt.Sprintf("anytls://%s@%s:%d?insecure=1&sni=%s#%s",
		url.User(d.Secret).String(), host, d.Port, url.QueryEscape(d.SNI), url.PathEscape(tag))
}

// Subscription encodes one link per line as a base64 subscription body,
// importable by the usual client apps.
func Subscription(links []string) string {
	var b strings.Builder
	for _, l := range links {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

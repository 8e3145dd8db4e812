package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DNS classes appended to transport error details.
const (
	DNSResolves = "RESOLVES"
	DNSNXDomain = "NXDOMAIN"
	DNSNoAnswer = "NO_ANSWER"
	DNSServFail = "SERVFAIL"
	DNSTimeout  = "DNS_TIMEOUT"
)

const defaultDNSTimeout = 2 * time.Second

// DNSDiagnoser explains transport failures by asking a resolver about the
// target host directly, bypassing the OS cache.
type DNSDiagnoser struct {
	Server  string
	Timeout time.Duration
	client  *dns.Client
}

// NewDNSDiagnoser returns nil when server is empty, which disables
// diagnostics.
func NewDNSDiagnoser(server string, timeout time.Duration) *DNSDiagnoser {
	if strings.TrimSpace(server) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &DNSDiagnoser{
		Server:  server,
		Timeout: timeout,
		client:  &dns.Client{Timeout: timeout},
	}
}

// Diagnose returns a DNS class for host, or "" for IP literals.
func (d *DNSDiagnoser) Diagnose(ctx context.Context, host string) string {
	host = strings.TrimSpace(host)
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	resp, _, err := d.client.ExchangeContext(ctx, msg, d.Server)
	return classifyDNS(resp, err)
}

func classifyDNS(resp *dns.Msg, err error) string {
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return DNSTimeout
		}
		return DNSServFail
	}
	if resp == nil {
		return DNSServFail
	}
	switch resp.Rcode {
	case dns.RcodeSuccess:
		if len(resp.Answer) > 0 {
			return DNSResolves
		}
		return DNSNoAnswer
	case dns.RcodeNameError:
		return DNSNXDomain
	default:
		return DNSServFail
	}
}

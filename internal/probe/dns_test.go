package probe

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestDNSServer starts a UDP DNS server on a random port and returns its address
func startTestDNSServer(t *testing.T, handler dns.Handler) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{
		PacketConn: pc,
		Handler:    handler,
	}

	go func() { _ = server.ActivateAndServe() }()

	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().String()
}

type zoneHandler struct {
	queries atomic.Int32
}

func (h *zoneHandler) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	h.queries.Add(1)

	msg := new(dns.Msg)
	msg.SetReply(r)

	q := r.Question[0]
	hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 300}

	switch q.Name {
	case "www.example.test.":
		switch q.Qtype {
		case dns.TypeA:
			msg.Answer = append(msg.Answer, &dns.A{Hdr: hdr, A: net.ParseIP("192.0.2.10")})
		case dns.TypeAAAA:
			msg.Answer = append(msg.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.ParseIP("2001:db8::10")})
		case dns.TypeMX:
			msg.Answer = append(msg.Answer, &dns.MX{Hdr: hdr, Preference: 10, Mx: "mail.example.test."})
		}
	case "example.test.":
		if q.Qtype == dns.TypeNS {
			msg.Answer = append(msg.Answer, &dns.NS{Hdr: hdr, Ns: "ns1.example.test."})
		}
	default:
		msg.Rcode = dns.RcodeNameError
	}

	_ = w.WriteMsg(msg)
}

func TestDNSClientResolve(t *testing.T) {
	handler := &zoneHandler{}
	addr := startTestDNSServer(t, handler)

	client := NewDNSClient(WithDNSServer(addr), WithDNSQueryTimeout(2*time.Second))

	result, err := client.Resolve(context.Background(), "www.example.test", "example.test")
	require.NoError(t, err)

	assert.Equal(t, []string{"192.0.2.10"}, result.A)
	assert.Equal(t, []string{"2001:db8::10"}, result.AAAA)
	assert.Equal(t, []string{"mail.example.test"}, result.MX)
	assert.Equal(t, []string{"ns1.example.test"}, result.NS)
	assert.Empty(t, result.CNAME)

	queried := handler.queries.Load()

	again, err := client.Resolve(context.Background(), "www.example.test", "example.test")
	require.NoError(t, err)
	assert.Equal(t, result, again)
	assert.Equal(t, queried, handler.queries.Load(), "second lookup is served from cache")

	again.A[0] = "mutated"

	third, err := client.Resolve(context.Background(), "www.example.test", "example.test")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", third.A[0])
}

func TestDNSClientNXDomain(t *testing.T) {
	addr := startTestDNSServer(t, &zoneHandler{})

	client := NewDNSClient(WithDNSServer(addr))

	_, err := client.Resolve(context.Background(), "missing.example.test", "example.test")
	require.ErrorIs(t, err, ErrNXDomain)
	assert.Equal(t, KindNotFound, Classify(err))
}

func TestDNSCacheExpiry(t *testing.T) {
	cache := newDNSCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.put("host", &DNSResult{A: []string{"192.0.2.1"}}, nil)

	_, ok := cache.get("host")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)

	_, ok = cache.get("host")
	assert.False(t, ok)
}

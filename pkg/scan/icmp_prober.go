/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/carverauto/cellradar/pkg/logger"
)

const (
	defaultICMPTimeout = 3 * time.Second
	maxPacketSize      = 1500
	identifierMask     = 0xffff
)

//nolint:gochecknoglobals // echo payload
var echoPayload = []byte("cellradar")

// hostResolver is satisfied by *net.Resolver.
type hostResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// ICMPProber sends ICMP echo requests. Host names are resolved to their
// first IPv4 address. Unprivileged mode uses datagram
// ICMP sockets (udp4), where the kernel owns the echo identifier; privileged
// mode uses a raw socket and matches replies on identifier and sequence.
type ICMPProber struct {
	timeout    time.Duration
	count      int
	privileged bool
	id         int
	seq        atomic.Uint32
	resolver   hostResolver
	logger     logger.Logger
}

// NewICMPProber returns a prober sending count echo requests within timeout.
func NewICMPProber(timeout time.Duration, count int, privileged bool, log logger.Logger) *ICMPProber {
	if timeout <= 0 {
		timeout = defaultICMPTimeout
	}

	if count <= 0 {
		count = 1
	}

	return &ICMPProber{
		timeout:    timeout,
		count:      count,
		privileged: privileged,
		id:         os.Getpid() & identifierMask,
		resolver:   net.DefaultResolver,
		logger:     log,
	}
}

func (p *ICMPProber) network() string {
	if p.privileged {
		return "ip4:icmp"
	}

	return "udp4"
}

func (p *ICMPProber) resolve(ctx context.Context, host string) (net.IP, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidIPv4, host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}

		return nil, fmt.Errorf("%w: %q", errInvalidIPv4, host)
	}

	addrs, err := p.resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4, nil
		}
	}

	return nil, fmt.Errorf("%w: %q has no IPv4 address", errInvalidIPv4, host)
}

// Probe ignores port.
func (p *ICMPProber) Probe(ctx context.Context, ip, _ string) Result {
	res := Result{ExitCode: -1}

	dst, err := p.resolve(ctx, ip)
	if err != nil {
		res.Err = err

		return res
	}

	conn, err := icmp.ListenPacket(p.network(), "0.0.0.0")
	if err != nil {
		res.Err = fmt.Errorf("icmp listen %s: %w", p.network(), err)

		return res
	}

	defer func() {
		if err := conn.Close(); err != nil {
			p.logger.Debug().Err(err).Msg("failed to close ICMP socket")
		}
	}()

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetDeadline(deadline); err != nil {
		res.Err = err

		return res
	}

	// unblock a pending read when the caller gives up
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	var target net.Addr = &net.IPAddr{IP: dst}
	if !p.privileged {
		target = &net.UDPAddr{IP: dst}
	}

	var total time.Duration

	for range p.count {
		seq := int(p.seq.Add(1) & identifierMask)
		res.Sent++

		rtt, err := p.echo(conn, target, dst, seq)
		if err != nil {
			var netErr net.Error
			if !errors.As(err, &netErr) || !netErr.Timeout() {
				res.Err = fmt.Errorf("icmp echo %s: %w", ip, err)

				return res
			}

			break
		}

		res.Received++
		total += rtt
	}

	if ctx.Err() != nil && res.Received == 0 {
		res.Err = ctx.Err()

		return res
	}

	res.HasSignal = true
	res.Success = res.Received > 0

	if !res.Success {
		res.Err = fmt.Errorf("%w: no echo reply from %s within %s", errProbeTimedOut, ip, p.timeout)

		return res
	}

	res.RTT = total / time.Duration(res.Received)
	res.Output = fmt.Sprintf("%d/%d echo replies from %s, avg rtt %s", res.Received, res.Sent, ip, res.RTT)

	return res
}

func (p *ICMPProber) echo(conn *icmp.PacketConn, target net.Addr, dst net.IP, seq int) (time.Duration, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: echoPayload},
	}

	b, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()

	if _, err := conn.WriteTo(b, target); err != nil {
		return 0, err
	}

	buf := make([]byte, maxPacketSize)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return 0, err
		}

		if !addrIP(peer).Equal(dst) {
			continue
		}

		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), buf[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		body, ok := reply.Body.(*icmp.Echo)
		if !ok || body.Seq != seq {
			continue
		}

		if p.privileged && body.ID != p.id {
			continue
		}

		return time.Since(start), nil
	}
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}

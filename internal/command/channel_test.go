package command

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

// startDevice runs a fake device agent. handle receives each accepted
// connection and is responsible for closing it.
func startDevice(t *testing.T, handle func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func testChannel(port int) *TCPChannel {
	return NewTCPChannel(ChannelConfig{
		Port:           port,
		ConnectTimeout: 200 * time.Millisecond,
		ReplyTimeout:   200 * time.Millisecond,
	})
}

func TestTCPChannel_Delivered(t *testing.T) {
	received := make(chan string, 1)
	port := startDevice(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 64)
		n, _ := c.Read(buf)
		received <- string(buf[:n])
		c.Write([]byte("locked"))
	})

	out := testChannel(port).Send(context.Background(), "127.0.0.1", Lock)
	if out.Kind != Delivered {
		t.Fatalf("Kind = %q, want %q (err %v)", out.Kind, Delivered, out.Err)
	}
	if string(out.Reply) != "locked" {
		t.Errorf("Reply = %q, want %q", out.Reply, "locked")
	}
	if got := <-received; got != "l" {
		t.Errorf("device received %q, want %q", got, "l")
	}
	if out.Observed() != "locked" {
		t.Errorf("Observed() = %q, want %q", out.Observed(), "locked")
	}
}

func TestTCPChannel_ConnectTimeoutOnClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	start := time.Now()
	out := testChannel(port).Send(context.Background(), "127.0.0.1", Unlock)
	if out.Kind != ConnectTimeout {
		t.Errorf("Kind = %q, want %q", out.Kind, ConnectTimeout)
	}
	if out.Err == nil {
		t.Error("Err = nil, want dial error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Send() took %v, want bounded by connect timeout", elapsed)
	}
}

func TestTCPChannel_RecvTimeoutOnSilentDevice(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	port := startDevice(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 64)
		c.Read(buf)
		<-release
	})

	start := time.Now()
	out := testChannel(port).Send(context.Background(), "127.0.0.1", LaunchA)
	if out.Kind != RecvTimeout {
		t.Errorf("Kind = %q, want %q", out.Kind, RecvTimeout)
	}
	if out.Observed() != string(RecvTimeout) {
		t.Errorf("Observed() = %q, want %q", out.Observed(), RecvTimeout)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Send() took %v, want bounded by reply timeout", elapsed)
	}
}

func TestTCPChannel_PeerClosesWithoutReply(t *testing.T) {
	port := startDevice(t, func(c net.Conn) {
		buf := make([]byte, 64)
		c.Read(buf)
		c.Close()
	})

	out := testChannel(port).Send(context.Background(), "127.0.0.1", Terminate)
	if out.Kind != RecvTimeout {
		t.Errorf("Kind = %q, want %q", out.Kind, RecvTimeout)
	}
}

func TestTCPChannel_AddressWithPort(t *testing.T) {
	port := startDevice(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 64)
		c.Read(buf)
		c.Write([]byte("ok"))
	})

	// Channel port points nowhere; the explicit port wins.
	ch := testChannel(1)
	out := ch.Send(context.Background(), "127.0.0.1:"+strconv.Itoa(port), Unlock)
	if out.Kind != Delivered {
		t.Errorf("Kind = %q, want %q (err %v)", out.Kind, Delivered, out.Err)
	}
}

func TestNewTCPChannel_Defaults(t *testing.T) {
	ch := NewTCPChannel(ChannelConfig{})
	if ch.port != "5005" {
		t.Errorf("port = %q, want 5005", ch.port)
	}
	if ch.connectTimeout != DefaultConnectTimeout || ch.replyTimeout != DefaultReplyTimeout {
		t.Errorf("timeouts = %v/%v, want defaults", ch.connectTimeout, ch.replyTimeout)
	}
	if ch.bufferSize != 1024 {
		t.Errorf("bufferSize = %d, want 1024", ch.bufferSize)
	}
}

package command

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Channel defaults match the device agent.
const (
	DefaultPort           = 5005
	DefaultConnectTimeout = 200 * time.Millisecond
	DefaultReplyTimeout   = 200 * time.Millisecond
	DefaultBufferSize     = 1024
)

// Sender delivers one code to one address and classifies the result.
// Implementations must not retry.
type Sender interface {
	Send(ctx context.Context, address string, code Code) Outcome
}

// ChannelConfig configures a TCPChannel.
type ChannelConfig struct {
	Port           int
	ConnectTimeout time.Duration
	ReplyTimeout   time.Duration
	BufferSize     int
}

// TCPChannel sends each command on a fresh TCP connection: dial, write the
// token, read one reply, close. There is no pooling and no retry.
type TCPChannel struct {
	port           string
	connectTimeout time.Duration
	replyTimeout   time.Duration
	bufferSize     int
}

// NewTCPChannel returns a channel with zero fields in cfg replaced by defaults.
func NewTCPChannel(cfg ChannelConfig) *TCPChannel {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &TCPChannel{
		port:           strconv.Itoa(cfg.Port),
		connectTimeout: cfg.ConnectTimeout,
		replyTimeout:   cfg.ReplyTimeout,
		bufferSize:     cfg.BufferSize,
	}
}

// Send performs one request/reply exchange with the device at address.
//
// Any dial failure, including refusal and no route, is reported as
// ConnectTimeout. A reply of zero bytes before the deadline, including the
// peer closing early, is RecvTimeout.
func (c *TCPChannel) Send(ctx context.Context, address string, code Code) Outcome {
	dialer := net.Dialer{Timeout: c.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.target(address))
	if err != nil {
		return Outcome{Kind: ConnectTimeout, Err: err}
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.connectTimeout)); err != nil {
		return Outcome{Kind: SendFailure, Err: err}
	}
	if _, err := conn.Write([]byte(code)); err != nil {
		return Outcome{Kind: SendFailure, Err: err}
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.replyTimeout)); err != nil {
		return Outcome{Kind: RecvTimeout, Err: err}
	}
	buf := make([]byte, c.bufferSize)
	n, err := conn.Read(buf)
	if n > 0 {
		return Outcome{Kind: Delivered, Reply: buf[:n]}
	}
	return Outcome{Kind: RecvTimeout, Err: err}
}

// target appends the command port unless address already carries one.
func (c *TCPChannel) target(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, c.port)
}

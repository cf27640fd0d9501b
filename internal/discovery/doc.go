// Package discovery receives device announcements broadcast on the LAN.
//
// Each device periodically broadcasts a UDP datagram "name,address" to a
// fixed port (37020 by default). The Listener parses it and upserts the
// device registry. Malformed datagrams are logged at debug level, counted,
// and dropped; they never reach the registry and never surface as errors.
//
// The listener is polled rather than run as its own loop. Each Poll waits at
// most PollWait for a datagram, and Drain keeps polling while datagrams are
// queued so a burst from many devices is absorbed in one timer tick.
//
// Usage:
//
//	l, err := discovery.Listen(discovery.Config{Port: 37020}, registry)
//	if err != nil {
//	    return err
//	}
//	defer l.Close()
//	n, err := l.Drain()
package discovery

// Package command delivers single-shot commands to devices.
//
// # Wire Protocol
//
// Each command opens a new TCP connection to the device (port 5005 by
// default), writes one token, reads at most one reply, and closes:
//
//	l          lock the screen
//	u          unlock the screen
//	launchPS   launch application variant A
//	launchPR   launch application variant B
//	closeMine  terminate the launched application
//
// There is no framing and no correlation id. Every failure is folded into an
// Outcome (ConnectTimeout, SendFailure, RecvTimeout) at the channel boundary
// and never propagates as an error.
//
// # Dispatch
//
//	Submit ──▶ [ FIFO queue ] ──▶ worker goroutine ──▶ Sender.Send ──▶ ResultHandlers
//
// The Dispatcher owns exactly one worker, so at most one connection is ever
// open. Lock state is kept correct by the reconciler re-submitting on every
// tick, not by retries here. Launch and terminate are therefore at-most-once.
//
// # Usage
//
//	ch := command.NewTCPChannel(command.ChannelConfig{Port: 5005})
//	d := command.NewDispatcher(ch)
//	d.OnResult(func(r command.Result) { registry.RecordOutcome(...) })
//	d.Start(ctx)
//	defer d.Stop()
//
//	d.Submit(command.New("alice", "10.0.0.5", command.Lock, command.SourceOperator))
package command

// Package audit records session lifecycle events without blocking the session
// manager on the consumer.
//
// A [Dispatcher] owns one worker goroutine that feeds a [Sink].  Events are
// buffered; when the buffer is full they are either dropped and counted or
// the caller waits, depending on [Config].  Sink failures are counted and
// logged, never retried.
//
// Events never carry bearer tokens.  The session manager decides which events
// exist; this package only moves them.
package audit

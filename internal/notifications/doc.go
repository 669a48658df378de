// Package notifications delivers run events to ntfy.
//
// The topic configured in config.toml (a full URL or a bare ntfy.sh topic
// name) receives run started, run completed, per-video failure, and
// new-video discovery messages. Each run event can be switched off, and the
// service degrades to a no-op when no topic is set. Delivery failures are
// returned to the caller, which only logs them.
package notifications

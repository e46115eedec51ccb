// Package notifications delivers run events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and degrades to a no-op when notifications are disabled. Callers depend only
// on the Service interface, and delivery failures are reported to the caller
// rather than aborting a run.
package notifications

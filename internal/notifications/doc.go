// Package notifications publishes request milestones to an ntfy topic.
//
// NewService returns a no-op implementation when no topic is configured so
// callers never need to branch on whether notifications are enabled. Only
// terminal events are published; intermediate events are accepted and
// dropped.
package notifications

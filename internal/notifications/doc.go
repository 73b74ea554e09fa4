// Package notifications pushes operator alerts to an ntfy topic.
//
// docent only alerts on conditions a curator has to act on: the vision
// provider refusing requests (rate limit or exhausted credits) and the
// registry sheet sync failing. Alerts of the same kind are throttled by a
// cooldown so a busy gallery does not flood the topic. When no topic is
// configured New returns a no-op notifier.
package notifications

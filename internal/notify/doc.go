// Package notify implements the delivery channels for alerts: a structured
// log notifier and an SMTP email notifier. Both satisfy alerting.Notifier
// and follow the same doctrine — a notifier never breaks its caller, every
// failure is logged and reported as an unsuccessful send.
package notify

package notify

import "github.com/terramon/terramon/internal/alerting"

// Registry builds the channel→notifier lookup table the manager dispatches
// through. The webhook channel is reserved and has no implementation yet;
// dispatch skips channels with no entry.
func Registry(email *EmailNotifier) map[alerting.Channel]alerting.Notifier {
	return map[alerting.Channel]alerting.Notifier{
		alerting.ChannelLog:   NewLogNotifier(nil),
		alerting.ChannelEmail: email,
	}
}

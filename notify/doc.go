// Package notify reports account and repository changes to humans and
// other systems.
//
// Commands emit an Event through Send, which finds the Notifier stored in
// the context. ghswitch always wires a LogNotifier and adds a
// WebhookNotifier or SlackNotifier when their URLs are configured, joined
// by a Fanout:
//
//	n := notify.NewFanout(
//	    notify.NewLogNotifier(logger),
//	    notify.NewWebhookNotifier(url, nil),
//	)
//	ctx = notify.WithNotifier(ctx, n)
//	_ = notify.Send(ctx, notify.NewEvent(notify.EventAccountAdded, "work", "account work added"))
//
// HTTP deliveries are attempted once with a short timeout. A failed
// delivery is returned to the caller; it never undoes the change that
// triggered it.
package notify

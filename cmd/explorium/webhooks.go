package main

import (
	"context"

	"github.com/Sternrassler/explorium-cli/pkg/client"
)

func (a *app) runWebhooks(ctx context.Context, args []string) error {
	return a.dispatch(ctx, "webhooks", args, map[string]command{
		"create": {summary: "Register a webhook URL for a partner", run: a.webhookCommand("create", true)},
		"get":    {summary: "Show the webhook of a partner", run: a.webhookCommand("get", false)},
		"update": {summary: "Change the webhook URL of a partner", run: a.webhookCommand("update", true)},
		"delete": {summary: "Remove the webhook of a partner", run: a.webhookCommand("delete", false)},
	})
}

// webhookCommand builds one webhooks subcommand. withURL adds the
// required --url flag.
func (a *app) webhookCommand(name string, withURL bool) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		fs := a.newFlagSet("webhooks " + name)
		partnerID := fs.String("partner-id", "", "partner identifier (required)")
		fs.StringVar(partnerID, "p", "", "shorthand for --partner-id")
		var webhookURL string
		if withURL {
			fs.StringVar(&webhookURL, "url", "", "webhook URL (required)")
			fs.StringVar(&webhookURL, "u", "", "shorthand for --url")
		}
		if err := a.parse(fs, args); err != nil {
			return err
		}
		if *partnerID == "" {
			return usagef("--partner-id is required")
		}
		if withURL && webhookURL == "" {
			return usagef("--url is required")
		}

		var (
			resp client.Response
			err  error
		)
		switch name {
		case "create":
			resp, err = a.webhooks.Create(ctx, *partnerID, webhookURL)
		case "get":
			resp, err = a.webhooks.Get(ctx, *partnerID)
		case "update":
			resp, err = a.webhooks.Update(ctx, *partnerID, webhookURL)
		default:
			resp, err = a.webhooks.Delete(ctx, *partnerID)
		}
		if err != nil {
			return err
		}
		return a.emit(resp)
	}
}

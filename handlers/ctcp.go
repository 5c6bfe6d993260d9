package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gissleh/ircengine"
)

const defaultClientInfo = "ACTION CLIENTINFO PING TIME VERSION"

// CTCP implements the widely used CTCP commands (CLIENTINFO, VERSION, TIME, and PING), as well as the /ping command.
// It does not implement DCC.
//
// The replies can be changed with the `ctcp.clientinfo.reply` and `ctcp.version.reply` client values. If you handle
// more CTCP commands yourself, add them to the former.
//
// The round trip of an answered /ping is put in the `latency` tag of the `ctcp-reply.ping` event, for the handlers
// after this one.
func CTCP(event *irc.Event, client *irc.Client) {
	switch event.Name() {
	case "ctcp.clientinfo":
		replyCTCP(event, client, "CLIENTINFO", stringValue(client, "ctcp.clientinfo.reply", defaultClientInfo))
	case "ctcp.version":
		replyCTCP(event, client, "VERSION", stringValue(client, "ctcp.version.reply", "github.com/gissleh/ircengine"))
	case "ctcp.time":
		replyCTCP(event, client, "TIME", time.Now().Local().Format(time.RFC1123))
	case "ctcp.ping":
		replyCTCP(event, client, "PING", event.Text)
	case "ctcp-reply.ping":
		sent, err := strconv.ParseInt(event.Text, 10, 64)
		if err != nil {
			break
		}

		event.Tags["latency"] = time.Since(time.UnixMilli(sent)).Round(time.Millisecond).String()
	case "input.ping":
		event.Kill()

		targetName := strings.TrimSpace(event.Text)
		if targetName == "" && event.Target != nil {
			targetName = event.Target.Name()
		}
		if targetName == "" {
			client.EmitNonBlocking(irc.NewErrorEventTarget(event.Target, "input", "Usage: /ping <target>", nil))
			break
		}

		_ = client.SendCTCP("PING", targetName, false, strconv.FormatInt(time.Now().UnixMilli(), 10))
	}
}

func replyCTCP(event *irc.Event, client *irc.Client, command, text string) {
	if event.Sender == nil || event.Sender.IsServer() {
		return
	}

	_ = client.SendCTCP(command, event.Sender.Nick(), true, text)
}

func stringValue(client *irc.Client, key, fallback string) string {
	if v, ok := client.Value(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return fallback
}

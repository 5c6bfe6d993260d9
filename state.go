package irc

import (
	"github.com/gissleh/ircengine/isupport"
)

// ClientState is a snapshot of the client, meant for serialization.
type ClientState struct {
	ID         string          `json:"id"`
	Nick       string          `json:"nick"`
	User       string          `json:"user"`
	Host       string          `json:"host"`
	Connected  bool            `json:"connected"`
	Registered bool            `json:"registered"`
	ISupport   *isupport.State `json:"isupport"`
	Channels   []ChannelState  `json:"channels"`
}

// ChannelState is a snapshot of a channel the client is in.
type ChannelState struct {
	Name       string   `json:"name"`
	Topic      string   `json:"topic"`
	Visibility string   `json:"visibility"`
	Modes      string   `json:"modes"`
	Users      []string `json:"users,omitempty"`
}

// State gets a snapshot of the client.
func (client *Client) State() ClientState {
	state := ClientState{
		ID:         client.ID(),
		Nick:       client.Nick(),
		Connected:  client.Connected(),
		Registered: client.Registered(),
		ISupport:   client.isupport.State(),
		Channels:   make([]ChannelState, 0, 8),
	}

	me := client.registry.Me()
	if me == nil {
		return state
	}

	state.User = me.Username()
	state.Host = me.Host()

	for _, channel := range me.Channels() {
		entries := channel.Members().Entries()
		users := make([]string, 0, len(entries))
		for _, entry := range entries {
			users = append(users, entry.PrefixedNick())
		}

		state.Channels = append(state.Channels, ChannelState{
			Name:       channel.Name(),
			Topic:      channel.Topic().Text,
			Visibility: channel.Visibility().String(),
			Modes:      channel.Modes(),
			Users:      users,
		})
	}

	return state
}

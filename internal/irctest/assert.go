package irctest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gissleh/ircengine"
)

// AssertUserlist compares the channel's member list to a list of prefixed
// nicks, in order. It returns an error as well so it can be used from an
// Interaction callback.
func AssertUserlist(t *testing.T, channel *irc.Channel, assertedOrder ...string) error {
	t.Helper()

	entries := channel.Members().Entries()
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		order = append(order, entry.PrefixedNick())
	}

	if !assert.Equal(t, assertedOrder, order, "userlist of %s", channel.Name()) {
		return fmt.Errorf("userlist of %s is %s", channel.Name(), strings.Join(order, ", "))
	}

	return nil
}

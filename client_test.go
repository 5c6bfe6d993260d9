package irc_test

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gissleh/ircengine"
	"github.com/gissleh/ircengine/internal/irctest"
	"github.com/gissleh/ircengine/isupport"
	"github.com/gissleh/ircengine/list"
)

var welcomeLines = []string{
	":irc.example.com 001 Test :Welcome to the TestNet IRC Network Test!~Tester@testclient.example.com",
	":irc.example.com 005 Test CHANTYPES=# EXCEPTS INVEX CHANMODES=eIbq,k,flj,CFLNPQcgimnprstz PREFIX=(ov)@+ CASEMAPPING=rfc1459 NETWORK=TestNet :are supported by this server",
	":irc.example.com 352 Test * ~Tester testclient.example.com irc.example.com Test H :0 Test User",
}

var joinLines = []string{
	":Test!~Tester@testclient.example.com JOIN #Test",
	":irc.example.com 353 Test = #Test :Test @Gisle +Hunter2 Other",
	":irc.example.com 366 Test #Test :End of /NAMES list.",
}

func newTestClient(t *testing.T, config irc.Config) (*irc.Client, *irctest.FakeTransport, *irctest.EventLog) {
	t.Helper()

	if config.Nick == "" {
		config.Nick = "Test"
	}
	if config.User == "" {
		config.User = "Tester"
	}
	config.Logger = log.New(io.Discard, "", 0)

	client := irc.New(context.Background(), config)
	t.Cleanup(client.Destroy)

	events := &irctest.EventLog{}
	client.AddHandler(events.Handler)

	transport := irctest.NewFakeTransport()
	require.NoError(t, client.ConnectTransport(transport))

	return client, transport, events
}

func handleLines(t *testing.T, client *irc.Client, lines ...string) {
	t.Helper()

	for _, line := range lines {
		require.NoError(t, client.HandleLine(context.Background(), line), line)
	}
}

// assertSymmetric checks that every member of a channel has the channel in
// its channel set, and the other way around.
func assertSymmetric(t *testing.T, client *irc.Client) {
	t.Helper()

	for _, channel := range client.Registry().Channels() {
		for _, entry := range channel.Members().Entries() {
			user := entry.Member().(*irc.User)
			assert.True(t, user.InChannel(channel), "%s is in %s's list, but not the other way around", user.Nick(), channel.Name())
		}
	}

	for _, user := range client.Registry().Users() {
		for _, channel := range user.Channels() {
			assert.True(t, channel.HasMember(user), "%s has %s, but not the other way around", user.Nick(), channel.Name())
		}
	}
}

func TestClient(t *testing.T) {
	client := irc.New(context.Background(), irc.Config{
		Nick:         "Test",
		User:         "Tester",
		RealName:     "...",
		Alternatives: []string{"Test2", "Test3"},
		Logger:       log.New(io.Discard, "", 0),
	})
	defer client.Destroy()

	interaction := irctest.Interaction{
		Strict: false,
		Lines: []irctest.InteractionLine{
			{Client: "NICK Test"},
			{Client: "USER Tester 8 * :..."},
			{Server: ":testserver.example.com NOTICE * :*** Checking your bits..."},
			{Server: ":testserver.example.com 433 * Test :Nick is not available"},
			{Client: "NICK Test2"},
			{Server: ":testserver.example.com 001 Test2 :Welcome to the TestNet IRC Network Test2!~Tester@127.0.0.1"},
			{Client: "WHO Test2"},
			{Server: ":testserver.example.com 005 Test2 CHANTYPES=# CHANMODES=eIbq,k,flj,CFLNPQcgimnprstz PREFIX=(ov)@+ CASEMAPPING=rfc1459 NETWORK=TestNet :are supported by this server"},
			{Server: ":testserver.example.com 352 Test2 * ~Tester 127.0.0.1 testserver.example.com Test2 H :0 ..."},
			{Server: "PING :testserver.example.com"},
			{Client: "PONG :testserver.example.com"},
			{Callback: func() error {
				if client.Nick() != "Test2" {
					return errors.New("client.Nick(): " + client.Nick())
				}
				if client.Me().Username() != "~Tester" {
					return errors.New("client.Me().Username(): " + client.Me().Username())
				}
				if client.Me().Host() != "127.0.0.1" {
					return errors.New("client.Me().Host(): " + client.Me().Host())
				}

				return client.Join("#Test")
			}},
			{Client: "JOIN #Test"},
			{Server: ":Test2!~Tester@127.0.0.1 JOIN #Test *"},
			{Client: "MODE #Test"},
			{Server: ":testserver.example.com 353 Test2 = #Test :Test2 @Gisle +Hunter2"},
			{Server: ":testserver.example.com 366 Test2 #Test :End of /NAMES list."},
			{Server: "PING :testserver.example.com"},
			{Client: "PONG :testserver.example.com"},
			{Callback: func() error {
				channel := client.Channel("#Test")
				if channel == nil {
					return errors.New("channel not found")
				}

				err := irctest.AssertUserlist(t, channel, "@Gisle", "+Hunter2", "Test2")
				if err != nil {
					return err
				}

				return client.Quit("Goodbye")
			}},
			{Client: "QUIT :Goodbye"},
		},
	}

	addr, err := interaction.Listen()
	require.NoError(t, err)

	require.NoError(t, client.Connect(addr, false))

	interaction.Wait()

	if interaction.Failure != nil {
		t.Error(interaction.Failure)
	}

	for i, logLine := range interaction.Log {
		t.Logf("Log[%d]: %s", i, logLine)
	}
}

func TestClient_Registration(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{
		Password: "hunter2",
		RealName: "Test User",
	})

	assert.Equal(t, "Test", client.Nick())
	assert.Nil(t, client.Me())
	assert.False(t, client.Registered())
	assert.True(t, client.Connected())

	handleLines(t, client, welcomeLines...)

	assert.Equal(t, []string{
		"PASS hunter2",
		"NICK Test",
		"USER Tester 8 * :Test User",
		"WHO Test",
	}, transport.Sent())

	assert.True(t, client.Registered())
	require.NotNil(t, client.Me())
	assert.Equal(t, "~Tester", client.Me().Username())
	assert.Equal(t, "testclient.example.com", client.Me().Host())
	assert.Equal(t, "Test User", client.Me().RealName())
	assert.Equal(t, "irc.example.com", client.Registry().Server().Nick())
	assert.Equal(t, "TestNet", client.ISupport().NetworkName())

	assert.Equal(t, 1, events.Count("client.connect"))
	assert.Equal(t, 1, events.Count("client.ready"))
	assert.Equal(t, []string{"client.connect", "client.ready", "packet.1", "packet.5"}, events.Names()[:4])
}

func TestClient_NickCollision(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{
		Alternatives: []string{"Test2", "Test3"},
	})

	handleLines(t, client,
		":irc.example.com 433 * Test :Nickname is already in use.",
		":irc.example.com 433 * Test2 :Nickname is already in use.",
		":irc.example.com 433 * Test3 :Nickname is already in use.",
	)

	nicks := transport.SentWithPrefix("NICK ")
	require.Len(t, nicks, 4)
	assert.Equal(t, "NICK Test", nicks[0])
	assert.Equal(t, "NICK Test2", nicks[1])
	assert.Equal(t, "NICK Test3", nicks[2])
	assert.Regexp(t, `^NICK Test[0-9]{5}$`, nicks[3])
	assert.Equal(t, 3, events.Count("client.nickcollision"))

	// After registration, a collision is only reported.
	handleLines(t, client,
		":irc.example.com 001 Test3 :Welcome",
		":irc.example.com 433 Test3 Gisle :Nickname is already in use.",
	)

	assert.Len(t, transport.SentWithPrefix("NICK "), 4)
	assert.Equal(t, "Gisle", events.Last("client", "nickcollision").Arg(0))
}

func TestClient_Membership(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	require.NotNil(t, channel)
	irctest.AssertUserlist(t, channel, "@Gisle", "+Hunter2", "Other", "Test")
	assertSymmetric(t, client)
	assert.Equal(t, []*irc.Channel{channel}, client.Me().Channels())

	handleLines(t, client, ":Other!other@other.example.com PART #Test :Bye")
	irctest.AssertUserlist(t, channel, "@Gisle", "+Hunter2", "Test")
	assertSymmetric(t, client)
	require.NotNil(t, client.User("Other"), "parting should not forget the user")
	assert.Empty(t, client.User("Other").Channels())
	assert.Equal(t, "Bye", events.Last("channel", "part").Text)

	handleLines(t, client, ":Gisle!gisle@gisle.example.com KICK #Test Hunter2 :Out")
	irctest.AssertUserlist(t, channel, "@Gisle", "Test")
	assertSymmetric(t, client)
	kick := events.Last("channel", "kick")
	require.NotNil(t, kick)
	assert.Equal(t, "Hunter2", kick.User.Nick())
	assert.Equal(t, "Gisle", kick.Sender.Nick())
	assert.Equal(t, "Out", kick.Text)

	handleLines(t, client, ":Gisle!gisle@gisle.example.com QUIT :Gone")
	irctest.AssertUserlist(t, channel, "Test")
	assertSymmetric(t, client)
	assert.Nil(t, client.User("Gisle"))
	assert.Equal(t, 1, events.Count("channel.quit"))
	assert.Equal(t, 1, events.Count("user.quit"))

	handleLines(t, client, ":Hunter2!hunter@hunter.example.com JOIN :#Test")
	irctest.AssertUserlist(t, channel, "Hunter2", "Test")
	assertSymmetric(t, client)

	handleLines(t, client, ":Test!~Tester@testclient.example.com PART #Test")
	assert.Equal(t, 0, channel.Members().Len())
	assert.Empty(t, client.Me().Channels())
	assert.Empty(t, client.User("Hunter2").Channels())
	assertSymmetric(t, client)

	ended := events.Last("channel", "ended")
	require.NotNil(t, ended)
	assert.Equal(t, "part", ended.Text)
	assert.Same(t, channel, ended.Channel)

	// Rejoining starts over.
	handleLines(t, client, joinLines...)
	irctest.AssertUserlist(t, channel, "@Gisle", "+Hunter2", "Other", "Test")
	assertSymmetric(t, client)
}

func TestClient_KickedSelf(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	handleLines(t, client, ":Gisle!gisle@gisle.example.com KICK #Test Test :Bye")

	assert.Equal(t, 0, channel.Members().Len())
	assert.Empty(t, client.Me().Channels())
	assertSymmetric(t, client)
	assert.Equal(t, "kick", events.Last("channel", "ended").Text)
}

func TestClient_NamesKeepsEntries(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	gisle := client.User("Gisle")
	require.NotNil(t, gisle)

	entry, ok := channel.Entry(gisle)
	require.True(t, ok)
	assert.Equal(t, isupport.PrivilegeOp, entry.Privileges())

	changes := make([]list.ChangeKind, 0, 4)
	channel.OnMembersChange(func(change list.Change) {
		changes = append(changes, change.Kind)
	})

	handleLines(t, client,
		":irc.example.com 353 Test = #Test :Test +Gisle",
		":irc.example.com 366 Test #Test :End of /NAMES list.",
	)

	newEntry, ok := channel.Entry(gisle)
	require.True(t, ok)
	assert.Same(t, entry, newEntry)
	assert.Equal(t, isupport.PrivilegeVoice, newEntry.Privileges())

	irctest.AssertUserlist(t, channel, "+Gisle", "Test")
	assert.False(t, client.User("Other").InChannel(channel))
	assertSymmetric(t, client)

	assert.Equal(t, []list.ChangeKind{list.ChangeReset}, changes)
	assert.Equal(t, 2, events.Count("channel.names"))
}

func TestClient_NamesVisibility(t *testing.T) {
	client, _, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines[0])

	// Some servers leave out the symbol.
	handleLines(t, client,
		":irc.example.com 353 Test @ #Test :Test",
		":irc.example.com 353 Test #Test :Gisle",
		":irc.example.com 366 Test #Test :End of /NAMES list.",
	)

	channel := client.Channel("#Test")
	assert.Equal(t, irc.VisibilityNormal, channel.Visibility())
	irctest.AssertUserlist(t, channel, "Gisle", "Test")

	handleLines(t, client, ":irc.example.com 353 Test * #Test :Test Gisle")
	assert.Equal(t, irc.VisibilityPrivate, channel.Visibility())
}

func TestClient_NamesNotJoined(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	handleLines(t, client,
		":irc.example.com 353 Test = #Other :Alice @Gisle",
		":irc.example.com 366 Test #Other :End of /NAMES list.",
	)

	names := events.Last("channel", "names")
	require.NotNil(t, names)
	assert.Equal(t, "#Other", names.Channel.Name())
	assert.Equal(t, []string{"Alice", "Gisle"}, names.Args)

	other := client.Channel("#Other")
	require.NotNil(t, other)
	assert.Equal(t, 0, other.Members().Len())
	assert.Nil(t, client.User("Alice"))
	assert.Equal(t, []*irc.Channel{client.Channel("#Test")}, client.User("Gisle").Channels())
	assertSymmetric(t, client)
}

func TestClient_ChannelModes(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	other := client.User("Other")
	gisle := client.User("Gisle")

	handleLines(t, client, ":Gisle!gisle@gisle.example.com MODE #Test +ov-o+kl Other Other Gisle secret 32")

	privileges, err := channel.Privileges(other)
	require.NoError(t, err)
	assert.True(t, privileges.Has(isupport.PrivilegeOp|isupport.PrivilegeVoice))
	privileges, err = channel.Privileges(gisle)
	require.NoError(t, err)
	assert.Equal(t, isupport.PrivilegeNormal, privileges)
	assert.Equal(t, "secret", channel.Key())
	assert.Equal(t, 32, channel.Limit())
	irctest.AssertUserlist(t, channel, "@Other", "+Hunter2", "Gisle", "Test")

	mode := events.Last("channel", "mode")
	require.NotNil(t, mode)
	assert.Len(t, mode.Modes, 5)
	assert.Equal(t, "Gisle", mode.Sender.Nick())

	table := []struct {
		ModeString       string
		Bans             []string
		BanExceptions    []string
		InviteExceptions []string
	}{
		{"+b *!*@spam.example.com", []string{"*!*@spam.example.com"}, nil, nil},
		{"+e *!*@friend.example.com", []string{"*!*@spam.example.com"}, []string{"*!*@friend.example.com"}, nil},
		{"+I *!*@invited.example.com", []string{"*!*@spam.example.com"}, []string{"*!*@friend.example.com"}, []string{"*!*@invited.example.com"}},
		{"-b+b *!*@spam.example.com *!*@spam2.example.com", []string{"*!*@spam2.example.com"}, []string{"*!*@friend.example.com"}, []string{"*!*@invited.example.com"}},
		{"-eI *!*@friend.example.com *!*@invited.example.com", []string{"*!*@spam2.example.com"}, nil, nil},
	}

	for _, row := range table {
		handleLines(t, client, ":Gisle!gisle@gisle.example.com MODE #Test "+row.ModeString)

		assert.ElementsMatch(t, row.Bans, channel.Bans(), row.ModeString)
		assert.ElementsMatch(t, row.BanExceptions, channel.BanExceptions(), row.ModeString)
		assert.ElementsMatch(t, row.InviteExceptions, channel.InviteExceptions(), row.ModeString)
	}

	handleLines(t, client, ":Gisle!gisle@gisle.example.com MODE #Test +nts")
	assert.Equal(t, irc.VisibilitySecret, channel.Visibility())
	assert.True(t, channel.HasMode('n'))
	assert.True(t, channel.HasMode('t'))

	handleLines(t, client, ":Gisle!gisle@gisle.example.com MODE #Test -s-k *")
	assert.Equal(t, irc.VisibilityNormal, channel.Visibility())
	assert.Equal(t, "", channel.Key())
}

func TestClient_AmbiguousModesRejected(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	before := events.Count("channel.mode")

	handleLines(t, client, ":Gisle!gisle@gisle.example.com MODE #Test +bb *!*@spam.example.com")

	assert.Empty(t, channel.Bans())
	assert.Equal(t, before, events.Count("channel.mode"))
	assert.Equal(t, 1, events.Count("packet.mode"), "the packet is still raised")
}

func TestClient_ChannelModeIs(t *testing.T) {
	client, _, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)
	handleLines(t, client,
		":irc.example.com 324 Test #Test +ntk secret",
		":irc.example.com 329 Test #Test 1700000000",
		":irc.example.com 367 Test #Test *!*@spam.example.com Gisle 1700000000",
		":irc.example.com 348 Test #Test *!*@friend.example.com Gisle 1700000000",
		":irc.example.com 346 Test #Test *!*@invited.example.com Gisle 1700000000",
	)

	channel := client.Channel("#Test")
	assert.Equal(t, "secret", channel.Key())
	assert.True(t, channel.HasMode('n'))
	assert.Equal(t, time.Unix(1700000000, 0), channel.Created())
	assert.Equal(t, []string{"*!*@spam.example.com"}, channel.Bans())
	assert.Equal(t, []string{"*!*@friend.example.com"}, channel.BanExceptions())
	assert.Equal(t, []string{"*!*@invited.example.com"}, channel.InviteExceptions())
}

func TestClient_UserModes(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, ":Test MODE Test :+iw")

	assert.True(t, client.Me().HasMode('i'))
	assert.True(t, client.Me().HasMode('w'))

	handleLines(t, client, ":irc.example.com 221 Test -w")
	assert.True(t, client.Me().HasMode('i'))
	assert.False(t, client.Me().HasMode('w'))
	assert.Equal(t, 2, events.Count("user.mode"))

	handleLines(t, client, ":Test MODE Test :+s +cF")
	assert.Equal(t, "iscF", client.Me().Modes())
}

func TestClient_Nick(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	me := client.Me()

	handleLines(t, client, ":Test!~Tester@testclient.example.com NICK :Test2")
	assert.Equal(t, "Test2", client.Nick())
	assert.Same(t, me, client.User("Test2"))
	assert.Nil(t, client.User("Test"))
	irctest.AssertUserlist(t, channel, "@Gisle", "+Hunter2", "Other", "Test2")

	nick := events.Last("user", "nick")
	require.NotNil(t, nick)
	assert.Equal(t, "Test", nick.Arg(0))
	assert.Equal(t, "Test2", nick.Arg(1))

	// The old nick from the client's own username and host is still the client.
	handleLines(t, client, ":Test!~Tester@testclient.example.com PRIVMSG Test2 :Still here?")
	message := events.Last("user", "message")
	require.NotNil(t, message)
	assert.Same(t, me, message.Sender)

	handleLines(t, client, ":Other!other@other.example.com NICK Gisle2")
	irctest.AssertUserlist(t, channel, "@Gisle", "+Hunter2", "Gisle2", "Test2")
	assertSymmetric(t, client)
}

func TestClient_NickRenameWindow(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})

	// Without the WHO reply, the client's username and host is unknown.
	handleLines(t, client, welcomeLines[0], welcomeLines[1])
	me := client.Me()
	require.NotNil(t, me)
	require.Empty(t, me.Host())

	handleLines(t, client, ":Test NICK Test2")
	require.Equal(t, "Test2", client.Nick())

	handleLines(t, client, ":Test!~Tester@elsewhere.example.com PRIVMSG #Test :In flight")
	message := events.Last("channel", "message")
	require.NotNil(t, message)
	assert.Same(t, me, message.Sender)

	// Once the client is heard from under its new nick, the old one is free.
	handleLines(t, client,
		":Test2!~Tester@testclient.example.com PRIVMSG #Test :Settled",
		":Test!someone@elsewhere.example.com PRIVMSG #Test :Hi",
	)
	message = events.Last("channel", "message")
	require.NotNil(t, message)
	assert.NotSame(t, me, message.Sender)
	assert.Equal(t, "Test", message.Sender.Nick())
}

func TestClient_OldNickTakenByStranger(t *testing.T) {
	client, _, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	me := client.Me()

	handleLines(t, client,
		":Test!~Tester@testclient.example.com NICK Renamed",
		":Test!stranger@elsewhere.example.com JOIN #Test",
	)

	stranger := client.User("Test")
	require.NotNil(t, stranger)
	assert.NotSame(t, me, stranger)
	assert.Equal(t, "stranger", stranger.Username())
	irctest.AssertUserlist(t, channel, "@Gisle", "+Hunter2", "Other", "Renamed", "Test")
	assertSymmetric(t, client)
}

func TestClient_ResolveByHost(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	handleLines(t, client, ":Gisle!gisle@gisle.example.com PRIVMSG #Test :Hello")
	gisle := client.User("Gisle")
	require.NotNil(t, gisle)

	handleLines(t, client, ":Gisle_!gisle@gisle.example.com PRIVMSG #Test :Hello again")
	message := events.Last("channel", "message")
	require.NotNil(t, message)
	assert.Same(t, gisle, message.Sender)
	assert.Nil(t, client.User("Gisle_"))

	// Someone else using the nick from another host gets the nick fallback.
	handleLines(t, client, ":Gisle!other@elsewhere.example.com PRIVMSG #Test :Hi")
	message = events.Last("channel", "message")
	require.NotNil(t, message)
	assert.Same(t, gisle, message.Sender)
	assert.Equal(t, "elsewhere.example.com", gisle.Host())
}

func TestClient_CaseMapping(t *testing.T) {
	client, _, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines[0])
	handleLines(t, client,
		":Test!~Tester@testclient.example.com JOIN #Test",
		":irc.example.com 353 Test = #Test :Test Gisle[m]",
		":irc.example.com 366 Test #Test :End of /NAMES list.",
	)

	assert.Nil(t, client.User("gisle{m}"))

	handleLines(t, client, ":irc.example.com 005 Test CASEMAPPING=rfc1459 :are supported by this server")

	user := client.User("gisle{m}")
	require.NotNil(t, user)
	assert.Equal(t, "Gisle[m]", user.Nick())
	assert.True(t, client.Channel("#test").HasMember(user))
}

func TestClient_Text(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	handleLines(t, client, ":Gisle!gisle@gisle.example.com PRIVMSG #Test :Hello, World!")
	message := events.Last("channel", "message")
	require.NotNil(t, message)
	assert.Equal(t, "Hello, World!", message.Text)
	assert.Equal(t, "Gisle", message.Sender.Nick())
	assert.Same(t, client.Channel("#Test"), message.Channel)
	assert.Same(t, client.Channel("#Test"), message.Target)

	handleLines(t, client, ":Gisle!gisle@gisle.example.com NOTICE Test :Psst")
	notice := events.Last("user", "notice")
	require.NotNil(t, notice)
	assert.Equal(t, "Psst", notice.Text)
	assert.Same(t, client.User("Gisle"), notice.Target)
}

func TestClient_CTCP(t *testing.T) {
	table := []struct {
		Line     string
		Names    []string
		Commands []string
		Texts    []string
	}{
		{
			":Gisle!gisle@gisle.example.com PRIVMSG #Test :Hi!\x01FINGER\x01",
			[]string{"channel.message", "ctcp.finger"},
			[]string{"FINGER"},
			[]string{"Hi!", ""},
		},
		{
			":Gisle!gisle@gisle.example.com PRIVMSG #Test :\x01ACTION waves\x01",
			[]string{"ctcp.action"},
			[]string{"ACTION"},
			[]string{"waves"},
		},
		{
			":Gisle!gisle@gisle.example.com PRIVMSG Test :\x01VERSION",
			[]string{"ctcp.version"},
			[]string{"VERSION"},
			[]string{""},
		},
		{
			":Gisle!gisle@gisle.example.com NOTICE Test :\x01PING 1234\x01",
			[]string{"ctcp-reply.ping"},
			[]string{"PING"},
			[]string{"1234"},
		},
		{
			":Gisle!gisle@gisle.example.com PRIVMSG #Test :" + strings.Repeat("\x01TIME\x01", 10),
			[]string{
				"ctcp.time", "ctcp.time", "ctcp.time", "ctcp.time", "ctcp.time",
				"ctcp.time", "ctcp.time", "ctcp.time", "ctcp.time", "ctcp.time",
			},
			[]string{"TIME", "TIME", "TIME", "TIME", "TIME", "TIME", "TIME", "TIME", "TIME", "TIME"},
			[]string{"", "", "", "", "", "", "", "", "", ""},
		},
	}

	for _, row := range table {
		t.Run(row.Line, func(t *testing.T) {
			client, _, _ := newTestClient(t, irc.Config{})
			handleLines(t, client, welcomeLines...)
			handleLines(t, client, joinLines...)

			events := &irctest.EventLog{}
			client.AddHandler(func(event *irc.Event, client *irc.Client) {
				if event.Kind() == "ctcp" || event.Kind() == "ctcp-reply" || event.Name() == "channel.message" || event.Name() == "user.message" {
					events.Handler(event, client)
				}
			})

			handleLines(t, client, row.Line)

			assert.Equal(t, row.Names, events.Names())

			commands := make([]string, 0, len(row.Commands))
			texts := make([]string, 0, len(row.Texts))
			for _, event := range events.Events() {
				texts = append(texts, event.Text)
				if event.CTCP != nil {
					commands = append(commands, event.CTCP.Command)
				}
			}
			assert.Equal(t, row.Commands, commands)
			assert.Equal(t, row.Texts, texts)
		})
	}
}

func TestClient_Discovery(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)

	seen := make([]string, 0, 4)
	client.AddHandler(func(event *irc.Event, client *irc.Client) {
		if event.Name() == "discover.user" && event.User.Nick() == "Gisle" {
			event.User.AddHandler(func(event *irc.Event, client *irc.Client) {
				seen = append(seen, event.Name())
			})
		}
	})

	handleLines(t, client,
		":Gisle!gisle@gisle.example.com PRIVMSG Test :Hello",
		":Gisle!gisle@gisle.example.com PRIVMSG Test :Hello again",
	)

	assert.Equal(t, []string{"user.message", "user.message"}, seen)
	assert.True(t, client.User("Gisle").Active())

	discoveries := 0
	for _, name := range events.Names() {
		if name == "discover.user" {
			discoveries++
		}
	}
	// One for the client's own user, and one for Gisle.
	assert.Equal(t, 2, discoveries)
}

func TestClient_KilledEvent(t *testing.T) {
	client, _, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	reached := false
	channel := client.Channel("#Test")
	channel.AddHandler(func(event *irc.Event, client *irc.Client) {
		if event.Name() == "channel.message" {
			event.Kill()
		}
	})
	client.AddHandler(func(event *irc.Event, client *irc.Client) {
		if event.Name() == "channel.message" {
			reached = true
		}
	})

	handleLines(t, client, ":Gisle!gisle@gisle.example.com PRIVMSG #Test :Hello")
	assert.False(t, reached)
}

func TestClient_Unhandled(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)

	client.AddUnhandledHandler(func(message *irc.Message, client *irc.Client) bool {
		return message.Command == "375"
	})

	handleLines(t, client,
		":irc.example.com 375 Test :- irc.example.com Message of the Day -",
		":irc.example.com 372 Test :- Be nice",
		":irc.example.com 482 Test #Test :You're not channel operator",
	)

	assert.Equal(t, 0, events.Count("info.375"))
	assert.Equal(t, 1, events.Count("packet.375"))

	motd := events.Last("info", "372")
	require.NotNil(t, motd)
	assert.Equal(t, "- Be nice", motd.Text)

	notOp := events.Last("error", "482")
	require.NotNil(t, notOp)
	assert.Equal(t, "#Test You're not channel operator", notOp.Text)
}

func TestClient_ParseErrorClosesConnection(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)

	err := client.HandleLine(context.Background(), ":Gisle!gisle PRIVMSG #Test :Hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, irc.ErrMalformedSender))

	assert.Equal(t, 1, events.Count("error.parse"))
	assert.Equal(t, 1, events.Count("client.disconnect"))
	assert.Equal(t, "parse error", events.Last("client", "disconnect").Text)
	assert.True(t, transport.Closed())
	assert.False(t, client.Connected())
	assert.False(t, client.Registered())
}

func TestClient_PingTimeout(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{
		PingInterval: time.Millisecond * 20,
		PingTimeout:  time.Millisecond * 50,
	})

	// No pings before registration.
	time.Sleep(time.Millisecond * 60)
	assert.Empty(t, transport.SentWithPrefix("PING"))

	handleLines(t, client, welcomeLines...)

	_, ok := transport.WaitFor("PING :", time.Second)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		return events.Count("client.disconnect") > 0
	}, time.Second, time.Millisecond*5)

	time.Sleep(time.Millisecond * 100)

	assert.Equal(t, 1, events.Count("client.disconnect"))
	assert.Equal(t, "ping timeout", events.Last("client", "disconnect").Text)
	assert.True(t, transport.Closed())
	assert.False(t, client.Connected())
}

func TestClient_PingAnswered(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{
		PingInterval: time.Millisecond * 30,
		PingTimeout:  time.Millisecond * 150,
	})
	handleLines(t, client, welcomeLines...)

	answered := 0
	deadline := time.Now().Add(time.Millisecond * 400)
	for time.Now().Before(deadline) {
		pings := transport.SentWithPrefix("PING :")
		for _, ping := range pings[answered:] {
			handleLines(t, client, ":irc.example.com PONG irc.example.com :"+strings.TrimPrefix(ping, "PING :"))
		}
		answered = len(pings)

		time.Sleep(time.Millisecond * 5)
	}

	assert.Greater(t, answered, 2)
	assert.Equal(t, 0, events.Count("client.disconnect"))
	assert.True(t, client.Connected())
}

func TestClient_DelayedNames(t *testing.T) {
	t.Run("Sent", func(t *testing.T) {
		client, transport, _ := newTestClient(t, irc.Config{NamesDelay: time.Millisecond * 20})
		handleLines(t, client, welcomeLines...)

		require.NoError(t, client.Join("#Test"))
		handleLines(t, client, ":Test!~Tester@testclient.example.com JOIN #Test")

		line, ok := transport.WaitFor("NAMES", time.Second)
		require.True(t, ok)
		assert.Equal(t, "NAMES #Test", line)

		time.Sleep(time.Millisecond * 50)
		assert.Len(t, transport.SentWithPrefix("NAMES"), 1)
	})

	t.Run("Cancelled", func(t *testing.T) {
		client, transport, _ := newTestClient(t, irc.Config{NamesDelay: time.Millisecond * 50})
		handleLines(t, client, welcomeLines...)

		require.NoError(t, client.Join("#Test"))
		handleLines(t, client, joinLines...)

		time.Sleep(time.Millisecond * 150)
		assert.Empty(t, transport.SentWithPrefix("NAMES"))
	})

	t.Run("CancelledByDisconnect", func(t *testing.T) {
		client, transport, _ := newTestClient(t, irc.Config{NamesDelay: time.Millisecond * 50})
		handleLines(t, client, welcomeLines...)

		require.NoError(t, client.Join("#Test"))
		require.NoError(t, client.Disconnect())

		time.Sleep(time.Millisecond * 150)
		assert.Empty(t, transport.SentWithPrefix("NAMES"))
	})
}

func TestClient_Topic(t *testing.T) {
	client, _, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)
	handleLines(t, client,
		":irc.example.com 332 Test #Test :Welcome to #Test",
		":irc.example.com 333 Test #Test Gisle!gisle@gisle.example.com 1700000000",
	)

	channel := client.Channel("#Test")
	topic := channel.Topic()
	assert.Equal(t, "Welcome to #Test", topic.Text)
	require.NotNil(t, topic.Setter)
	assert.Equal(t, "Gisle", topic.Setter.Nick())
	assert.Equal(t, time.Unix(1700000000, 0), topic.Date)

	handleLines(t, client, ":Hunter2!hunter@hunter.example.com TOPIC #Test :New topic")
	topic = channel.Topic()
	assert.Equal(t, "New topic", topic.Text)
	assert.Equal(t, "Hunter2", topic.Setter.Nick())
	assert.Equal(t, 2, events.Count("channel.topic"))

	handleLines(t, client, ":irc.example.com 331 Test #Test :No topic is set")
	assert.Equal(t, "", channel.Topic().Text)
}

func TestClient_Whois(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)

	require.NoError(t, client.Whois("Gisle"))
	assert.Equal(t, []string{"WHOIS Gisle"}, transport.SentWithPrefix("WHOIS"))

	handleLines(t, client,
		":irc.example.com 311 Test Gisle gisle gisle.example.com * :Gisle Real",
		":irc.example.com 312 Test Gisle irc2.example.com :The other server",
		":irc.example.com 301 Test Gisle :Making coffee",
		":irc.example.com 317 Test Gisle 120 1700000000 :seconds idle, signon time",
		":irc.example.com 318 Test Gisle :End of /WHOIS list.",
	)

	user := client.User("Gisle")
	require.NotNil(t, user)
	assert.Equal(t, "gisle", user.Username())
	assert.Equal(t, "gisle.example.com", user.Host())
	assert.Equal(t, "Gisle Real", user.RealName())
	assert.Equal(t, "irc2.example.com", user.ServerName())
	assert.Equal(t, "Making coffee", user.Away())

	idle, signOn := user.Idle()
	assert.Equal(t, time.Minute*2, idle)
	assert.Equal(t, time.Unix(1700000000, 0), signOn)

	assert.Equal(t, 5, events.Count("user.info"), "four WHOIS replies, and the WHO reply about the client itself")
	assert.Equal(t, "318", events.Last("user", "info").Tags["numeric"])
}

func TestClient_Who(t *testing.T) {
	client, _, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client,
		":irc.example.com 352 Test #Test gisle gisle.example.com irc.example.com Gisle G@ :0 Gisle Real",
		":irc.example.com 352 Test #Test hunter hunter.example.com irc.example.com Hunter2 H :2 Hunter Two",
	)

	gisle := client.User("Gisle")
	require.NotNil(t, gisle)
	assert.Equal(t, "away", gisle.Away())
	assert.Equal(t, "Gisle Real", gisle.RealName())
	assert.Equal(t, "Gisle!gisle@gisle.example.com", gisle.FullName())

	hunter := client.User("Hunter2")
	require.NotNil(t, hunter)
	assert.Equal(t, "", hunter.Away())
	assert.Equal(t, "Hunter Two", hunter.RealName())
}

func TestClient_Invite(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{AutoJoinInvites: true})
	handleLines(t, client, welcomeLines...)

	handleLines(t, client, ":Gisle!gisle@gisle.example.com INVITE Test :#Secret")

	invite := events.Last("channel", "invite")
	require.NotNil(t, invite)
	assert.Equal(t, "#Secret", invite.Channel.Name())
	assert.Same(t, client.Me(), invite.User)
	assert.Equal(t, []string{"JOIN #Secret"}, transport.SentWithPrefix("JOIN"))

	// Someone else being invited is only reported.
	handleLines(t, client, ":Gisle!gisle@gisle.example.com INVITE Hunter2 #Secret2")
	assert.Len(t, transport.SentWithPrefix("JOIN"), 1)
}

func TestClient_List(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)

	require.NoError(t, client.List())
	assert.Equal(t, []string{"LIST"}, transport.SentWithPrefix("LIST"))

	handleLines(t, client,
		":irc.example.com 321 Test Channel :Users  Name",
		":irc.example.com 322 Test #Test 12 :Welcome to #Test",
		":irc.example.com 322 Test #Other 3 :",
		":irc.example.com 323 Test :End of /LIST",
	)

	listed := events.Last("client", "list")
	require.NotNil(t, listed)
	require.Len(t, listed.Channels, 2)
	assert.Equal(t, "#Test", listed.Channels[0].Name())
	assert.Equal(t, 12, listed.Channels[0].ListedUsers())
	assert.Equal(t, "Welcome to #Test", listed.Channels[0].Topic().Text)
	assert.Equal(t, 3, listed.Channels[1].ListedUsers())
}

func TestClient_Commands(t *testing.T) {
	client, transport, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	channel := client.Channel("#Test")
	gisle := client.User("Gisle")

	require.NoError(t, channel.Say("Hello"))
	require.NoError(t, channel.Describe("waves"))
	require.NoError(t, channel.SetTopic("A topic"))
	require.NoError(t, channel.Kick(gisle, "Bye"))
	require.NoError(t, channel.SetPrivilege(gisle, isupport.PrivilegeVoice))
	require.NoError(t, channel.RemovePrivilege(gisle, isupport.PrivilegeOp))
	require.NoError(t, gisle.Notice("Psst"))
	require.NoError(t, client.Part("#Test", "Bye"))
	require.NoError(t, client.JoinWithKey("#Locked", "secret"))

	sent := transport.Sent()
	assert.Subset(t, sent, []string{
		"PRIVMSG #Test :Hello",
		"PRIVMSG #Test :\x01ACTION waves\x01",
		"TOPIC #Test :A topic",
		"KICK #Test Gisle :Bye",
		"MODE #Test +v Gisle",
		"MODE #Test -o Gisle",
		"NOTICE Gisle :Psst",
		"PART #Test :Bye",
		"JOIN #Locked secret",
	})

	nobody := irc.NewRegistry(nil, isupport.New()).GetOrCreateUser("Nobody")
	_, err := channel.Privileges(nobody)
	assert.Equal(t, irc.ErrNotMember, err)
	assert.Equal(t, irc.ErrNotMember, channel.SetPrivilege(nobody, isupport.PrivilegeVoice))
	assert.Equal(t, irc.ErrPrivilegeNotSupported, channel.SetPrivilege(gisle, isupport.PrivilegeOwner))
}

func TestClient_SayCutsLongMessages(t *testing.T) {
	client, transport, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)

	text := strings.Repeat("Lorem ipsum dolor sit amet. ", 40)
	require.NoError(t, client.Say("#Test", text))

	lines := transport.SentWithPrefix("PRIVMSG #Test :")
	require.Greater(t, len(lines), 1)

	maxLength := 510 - client.PrivmsgOverhead("#Test", false)
	joined := make([]string, 0, len(lines))
	for _, line := range lines {
		cut := strings.TrimPrefix(line, "PRIVMSG #Test :")
		assert.LessOrEqual(t, len(cut), maxLength)
		joined = append(joined, cut)
	}

	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(joined, " ")))
}

func TestClient_Reconnect(t *testing.T) {
	client, first, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)

	second := irctest.NewFakeTransport()
	require.NoError(t, client.ConnectTransport(second))

	_, ok := second.WaitFor("USER", time.Second)
	require.True(t, ok)

	assert.True(t, first.Closed())
	assert.False(t, client.Registered())
	assert.Nil(t, client.Me())
	assert.Nil(t, client.Channel("#Test"))
	assert.Equal(t, 1, events.Count("client.disconnect"))
	assert.Equal(t, "replaced", events.Last("client", "disconnect").Text)

	// Lines from the old connection are ignored.
	first.Feed(":Gisle!gisle@gisle.example.com PRIVMSG Test :Hello")
	handleLines(t, client, welcomeLines...)
	assert.Nil(t, client.User("Gisle"))
}

func TestClient_Destroy(t *testing.T) {
	client, transport, events := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)

	client.Destroy()

	assert.Eventually(t, func() bool {
		return events.Count("client.destroy") == 1
	}, time.Second, time.Millisecond*5)
	assert.True(t, client.Destroyed())
	assert.True(t, transport.Closed())
	assert.Equal(t, 1, events.Count("client.disconnect"))

	assert.Equal(t, irc.ErrDestroyed, client.HandleLine(context.Background(), "PING :Test"))
	assert.Equal(t, irc.ErrDestroyed, client.ConnectTransport(irctest.NewFakeTransport()))
}

func TestClient_State(t *testing.T) {
	client, _, _ := newTestClient(t, irc.Config{})
	handleLines(t, client, welcomeLines...)
	handleLines(t, client, joinLines...)
	handleLines(t, client, ":irc.example.com 332 Test #Test :Welcome to #Test")

	state := client.State()
	assert.Equal(t, "Test", state.Nick)
	assert.Equal(t, "~Tester", state.User)
	assert.Equal(t, "testclient.example.com", state.Host)
	assert.True(t, state.Connected)
	assert.True(t, state.Registered)
	require.Len(t, state.Channels, 1)
	assert.Equal(t, "#Test", state.Channels[0].Name)
	assert.Equal(t, "Welcome to #Test", state.Channels[0].Topic)
	assert.Equal(t, []string{"@Gisle", "+Hunter2", "Other", "Test"}, state.Channels[0].Users)
}

package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gissleh/ircengine/ctcp"
	"github.com/gissleh/ircengine/ircmetrics"
	"github.com/gissleh/ircengine/ircutil"
	"github.com/gissleh/ircengine/isupport"
)

// ErrNoConnection is returned if you try to do something requiring a connection,
// but there is none.
var ErrNoConnection = errors.New("irc: no connection")

// ErrDestroyed is returned by HandleLine if the client is destroyed before the
// line is handled.
var ErrDestroyed = errors.New("irc: client is destroyed")

// A connection is one transport along with what is tracked for it.
type connection struct {
	transport Transport
	ctx       context.Context
	cancel    context.CancelFunc

	// Only touched by the event loop.
	pings map[string]*time.Timer
	lost  bool
}

type namesRequest struct {
	token uint64
	timer *time.Timer
}

// A Client is an IRC client. You need to use New to construct it
type Client struct {
	id      string
	config  Config
	logger  DebugLogger
	metrics *ircmetrics.Metrics

	mutex  sync.RWMutex
	conn   *connection
	ctx    context.Context
	cancel context.CancelFunc

	events  chan *Event
	sends   chan string
	limiter *rate.Limiter

	quit       bool
	registered bool
	isupport   *isupport.ISupport
	registry   *Registry
	values     map[string]interface{}
	names      map[string]*namesRequest
	namesToken uint64

	handlerMutex      sync.RWMutex
	handlers          []Handler
	unhandledHandlers []UnhandledHandler

	// Only touched by the event loop.
	listBuffer []*Channel
}

// New creates a new client. The context can be context.Background if you want manually to
// tear down clients upon quitting.
func New(ctx context.Context, config Config) *Client {
	config = config.WithDefaults()

	client := &Client{
		id:       uuid.NewString(),
		config:   config,
		logger:   config.Logger,
		metrics:  config.Metrics,
		values:   make(map[string]interface{}),
		events:   make(chan *Event, 64),
		sends:    make(chan string, 64),
		limiter:  rate.NewLimiter(rate.Limit(config.SendRate), config.SendRate),
		isupport: isupport.New(),
		names:    make(map[string]*namesRequest, 4),
	}

	client.registry = NewRegistry(client, client.isupport)
	client.ctx, client.cancel = context.WithCancel(ctx)

	go client.handleEventLoop()
	go client.handleSendLoop()

	return client
}

// Context gets the client's context. It's cancelled if the parent context used
// in New is, or Destroy is called.
func (client *Client) Context() context.Context {
	return client.ctx
}

// ID gets the unique identifier for the client, which could be used in data structures
func (client *Client) ID() string {
	return client.id
}

// Config gets the client's config, with defaults applied.
func (client *Client) Config() Config {
	return client.config
}

// Nick gets the nick of the client. Before registration, it's the configured nick.
func (client *Client) Nick() string {
	if me := client.registry.Me(); me != nil {
		return me.Nick()
	}

	return client.config.Nick
}

// Me gets the client's own user, or nil if the client is not yet registered.
func (client *Client) Me() *User {
	return client.registry.Me()
}

// ISupport gets the client's ISupport. This is mutable, and changes to it
// *will* affect the client.
func (client *Client) ISupport() *isupport.ISupport {
	return client.isupport
}

// Registry gets the users and channels the client knows.
func (client *Client) Registry() *Registry {
	return client.registry
}

// Channel gets a channel by name, or nil if it's not known.
func (client *Client) Channel(name string) *Channel {
	channel, ok := client.registry.Channel(name)
	if !ok {
		return nil
	}

	return channel
}

// User gets a user by nick, or nil if it's not known.
func (client *Client) User(nick string) *User {
	user, ok := client.registry.User(nick)
	if !ok {
		return nil
	}

	return user
}

// Connect connects to the server by addr.
func (client *Client) Connect(addr string, ssl bool) (err error) {
	var conn net.Conn

	if client.Connected() {
		_ = client.Disconnect()
	}

	err = client.EmitSync(context.Background(), NewEvent("client", "connecting"))
	if err != nil {
		return err
	}

	if ssl {
		conn, err = tls.Dial("tcp", addr, &tls.Config{
			InsecureSkipVerify: client.config.SkipSSLVerification,
		})
		if err != nil {
			return err
		}
	} else {
		conn, err = net.Dial("tcp", addr)
		if err != nil {
			return err
		}
	}

	return client.ConnectTransport(NewNetTransport(conn))
}

// ConnectTransport starts a connection on the transport, replacing the
// current one if there is one. The client registers itself once the
// connect event has been handled.
func (client *Client) ConnectTransport(transport Transport) error {
	if client.Destroyed() {
		return ErrDestroyed
	}

	conn := &connection{
		transport: transport,
		pings:     make(map[string]*time.Timer, 2),
	}
	conn.ctx, conn.cancel = context.WithCancel(client.ctx)

	client.mutex.Lock()
	previous := client.conn
	client.conn = conn
	client.quit = false
	client.mutex.Unlock()

	if previous != nil {
		_ = previous.transport.Close()

		lost := NewEvent("hook", "disconnect")
		lost.Text = "replaced"
		lost.conn = previous
		client.post(&lost)
	}

	event := NewEvent("client", "connect")
	event.conn = conn
	client.post(&event)

	go client.handleReadLoop(conn)
	go client.handlePingLoop(conn)

	return nil
}

// Disconnect disconnects from the server. It will either return the
// close error, or ErrNoConnection if there is no connection
func (client *Client) Disconnect() error {
	client.mutex.Lock()
	defer client.mutex.Unlock()

	if client.conn == nil {
		return ErrNoConnection
	}

	client.quit = true

	return client.conn.transport.Close()
}

// Connected returns true if the client has a connection
func (client *Client) Connected() bool {
	client.mutex.RLock()
	defer client.mutex.RUnlock()

	return client.conn != nil
}

// Registered returns true if the server has welcomed the client on the
// current connection.
func (client *Client) Registered() bool {
	client.mutex.RLock()
	defer client.mutex.RUnlock()

	return client.registered
}

// Send sends a line to the server. Line breaks are removed.
func (client *Client) Send(line string) error {
	client.mutex.RLock()
	conn := client.conn
	client.mutex.RUnlock()

	if conn == nil {
		return ErrNoConnection
	}

	err := conn.transport.WriteLine(lineBreakRemover.Replace(line))
	if err != nil {
		client.EmitNonBlocking(NewErrorEvent("network", err.Error(), err))
		_ = client.Disconnect()

		return err
	}

	client.metrics.LineSent()

	return nil
}

// Sendf is Send with a fmt.Sprintf
func (client *Client) Sendf(format string, a ...interface{}) error {
	return client.Send(fmt.Sprintf(format, a...))
}

// SendLine encodes the parts with EncodeLine and sends it. A JOIN sent this
// way will be followed by a NAMES request if the server doesn't send the
// names on its own soon enough.
func (client *Client) SendLine(parts ...string) error {
	if len(parts) == 0 {
		return nil
	}

	err := client.Send(EncodeLine(parts...))
	if err != nil {
		return err
	}

	if strings.EqualFold(parts[0], "JOIN") && len(parts) > 1 {
		for _, name := range strings.Split(parts[1], ",") {
			if name != "" && name != "0" {
				client.armNames(name)
			}
		}
	}

	return nil
}

// SendQueued appends a message to a queue that will only send Config.SendRate
// messages per second to avoid flooding. If the queue is full, a goroutine will
// be spawned to queue it, so this function will always return immediately.
// Order may not be guaranteed, however, but if you're sending 64 messages
// at once that may not be your greatest concern.
//
// Failed sends will be discarded quietly to avoid a backup from being
// thrown on a new connection.
func (client *Client) SendQueued(line string) {
	select {
	case client.sends <- line:
	default:
		go func() {
			select {
			case client.sends <- line:
			case <-client.ctx.Done():
			}
		}()
	}
}

// SendQueuedf is SendQueued with a fmt.Sprintf
func (client *Client) SendQueuedf(format string, a ...interface{}) {
	client.SendQueued(fmt.Sprintf(format, a...))
}

// Emit sends an event through the client's event, and it will return immediately
// unless the internal channel is filled up. The returned context can be used to
// wait for the event, or the client's destruction.
func (client *Client) Emit(event Event) context.Context {
	return client.post(&event)
}

// EmitNonBlocking is just like emit, but it will spin off a goroutine if the channel is full.
// This lets it be called from other handlers without ever blocking. See Emit for what the
// returned context is for.
func (client *Client) EmitNonBlocking(event Event) context.Context {
	event.ctx, event.cancel = context.WithCancel(client.ctx)

	select {
	case client.events <- &event:
	default:
		go func() {
			select {
			case client.events <- &event:
			case <-client.ctx.Done():
				event.cancel()
			}
		}()
	}

	return event.ctx
}

// EmitSync emits an event and waits for either its context to complete or the one
// passed to it (e.g. a request's context). It's a shorthand for Emit with its
// return value used in a `select` along with a passed context.
func (client *Client) EmitSync(ctx context.Context, event Event) (err error) {
	eventCtx := client.Emit(event)

	select {
	case <-eventCtx.Done():
		{
			if err := eventCtx.Err(); err != context.Canceled {
				return err
			}

			return nil
		}
	case <-ctx.Done():
		{
			return ctx.Err()
		}
	}
}

// EmitInput emits an input event parsed from the line, with the target it was
// written in. See ParseInput.
func (client *Client) EmitInput(line string, target Target) context.Context {
	event := ParseInput(line)
	event.Target = target

	return client.Emit(event)
}

// HandleLine handles the line as if it was received from the server, and
// waits until it's been handled. It returns the parse error if the line was
// unparseable, which will also have closed the connection.
func (client *Client) HandleLine(ctx context.Context, line string) error {
	event := NewEvent("hook", "line")
	event.Text = line

	eventCtx := client.post(&event)

	select {
	case <-eventCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	if client.Destroyed() {
		return ErrDestroyed
	}

	return event.err
}

// AddHandler adds a handler that will receive every event. Handlers run in the
// order they're added.
func (client *Client) AddHandler(handler Handler) {
	client.handlerMutex.Lock()
	client.handlers = append(client.handlers, handler)
	client.handlerMutex.Unlock()
}

// AddUnhandledHandler adds a handler for messages that the client does not
// handle itself.
func (client *Client) AddUnhandledHandler(handler UnhandledHandler) {
	client.handlerMutex.Lock()
	client.unhandledHandlers = append(client.unhandledHandlers, handler)
	client.handlerMutex.Unlock()
}

// Value gets a client value.
func (client *Client) Value(key string) (v interface{}, ok bool) {
	client.mutex.RLock()
	v, ok = client.values[key]
	client.mutex.RUnlock()

	return
}

// SetValue sets a client value.
func (client *Client) SetValue(key string, value interface{}) {
	client.mutex.Lock()
	client.values[key] = value
	client.mutex.Unlock()
}

// Destroy destroys the client, which will lead to a disconnect. Cancelling the
// parent context will do the same.
func (client *Client) Destroy() {
	_ = client.Disconnect()
	client.cancel()
}

// Destroyed returns true if the client has been destroyed, either by
// Destroy or the parent context.
func (client *Client) Destroyed() bool {
	select {
	case <-client.ctx.Done():
		return true
	default:
		return false
	}
}

// PrivmsgOverhead returns the overhead on a privmsg to the target. If `action` is true,
// it will also count the extra overhead of a CTCP ACTION.
func (client *Client) PrivmsgOverhead(targetName string, action bool) int {
	me := client.registry.Me()

	// Return a really safe estimate if user or host is missing.
	if me == nil || me.Username() == "" || me.Host() == "" {
		return 200
	}

	return ircutil.MessageOverhead(me.Nick(), me.Username(), me.Host(), targetName, action)
}

// Join joins one or more channels without a key.
func (client *Client) Join(channels ...string) error {
	return client.SendLine("JOIN", strings.Join(channels, ","))
}

// JoinWithKey joins a channel with a key.
func (client *Client) JoinWithKey(channel, key string) error {
	return client.SendLine("JOIN", channel, key)
}

// Part leaves a channel. The reason is optional.
func (client *Client) Part(channel, reason string) error {
	if reason == "" {
		return client.SendLine("PART", channel)
	}

	return client.SendLine("PART", channel, ":", reason)
}

// Say sends a PRIVMSG, split into several if it's too long.
func (client *Client) Say(targetName, text string) error {
	for _, cut := range ircutil.CutMessage(text, client.PrivmsgOverhead(targetName, false)) {
		if err := client.SendLine("PRIVMSG", targetName, ":", cut); err != nil {
			return err
		}
	}

	return nil
}

// Sayf is Say with a fmt.Sprintf.
func (client *Client) Sayf(targetName, format string, a ...interface{}) error {
	return client.Say(targetName, fmt.Sprintf(format, a...))
}

// Describe sends a CTCP ACTION, split into several if it's too long.
func (client *Client) Describe(targetName, text string) error {
	for _, cut := range ircutil.CutMessage(text, client.PrivmsgOverhead(targetName, true)) {
		if err := client.SendCTCP("ACTION", targetName, false, cut); err != nil {
			return err
		}
	}

	return nil
}

// Notice sends a NOTICE.
func (client *Client) Notice(targetName, text string) error {
	return client.SendLine("NOTICE", targetName, ":", text)
}

// Invite invites a user to a channel.
func (client *Client) Invite(nick, channel string) error {
	return client.SendLine("INVITE", nick, channel)
}

// SetTopic sets a channel's topic.
func (client *Client) SetTopic(channel, topic string) error {
	return client.SendLine("TOPIC", channel, ":", topic)
}

// Kick kicks a user from a channel. The reason is optional.
func (client *Client) Kick(channel, nick, reason string) error {
	if reason == "" {
		return client.SendLine("KICK", channel, nick)
	}

	return client.SendLine("KICK", channel, nick, ":", reason)
}

// SetMode sets the modes of a channel or user, e.g. SetMode("#Test", "+o", "Nick").
func (client *Client) SetMode(targetName, modes string, args ...string) error {
	return client.SendLine(append([]string{"MODE", targetName, modes}, args...)...)
}

// SetNick asks the server to change the client's nick.
func (client *Client) SetNick(nick string) error {
	return client.SendLine("NICK", nick)
}

// Whois requests information about a user.
func (client *Client) Whois(nick string) error {
	return client.SendLine("WHOIS", nick)
}

// Names requests the user list of a channel.
func (client *Client) Names(channel string) error {
	return client.SendLine("NAMES", channel)
}

// List requests the channel list, which is raised as client.list once it's complete.
func (client *Client) List() error {
	return client.SendLine("LIST")
}

// Quit quits the server. The reason is optional.
func (client *Client) Quit(reason string) error {
	client.mutex.Lock()
	client.quit = true
	client.mutex.Unlock()

	if reason == "" {
		return client.SendLine("QUIT")
	}

	return client.SendLine("QUIT", ":", reason)
}

// SendCTCP sends a CTCP query to the target, or a reply if reply is true.
func (client *Client) SendCTCP(command, targetName string, reply bool, text string) error {
	if reply {
		return client.SendLine("NOTICE", targetName, ":", ctcp.Encode(command, text))
	}

	return client.SendLine("PRIVMSG", targetName, ":", ctcp.Encode(command, text))
}

// post hands the event to the event loop, unless the client is destroyed.
func (client *Client) post(event *Event) context.Context {
	event.ctx, event.cancel = context.WithCancel(client.ctx)

	select {
	case client.events <- event:
	case <-client.ctx.Done():
		event.cancel()
	}

	return event.ctx
}

func (client *Client) handler(index int) (Handler, bool) {
	client.handlerMutex.RLock()
	defer client.handlerMutex.RUnlock()

	if index >= len(client.handlers) {
		return nil, false
	}

	return client.handlers[index], true
}

// raise runs the event through the client's handlers until it's killed.
func (client *Client) raise(event *Event) {
	if event.ctx == nil {
		event.ctx = client.ctx
	}

	client.metrics.Event(event.kind)

	for i := 0; !event.killed; i++ {
		handler, ok := client.handler(i)
		if !ok {
			break
		}

		handler(event, client)
	}
}

// raiseUser raises the event on the user first, and then on the client. The
// first time the user gets an event, discover.user is raised before it.
func (client *Client) raiseUser(user *User, event *Event) {
	if event.User == nil {
		event.User = user
	}

	user.raise(event, client, func() {
		discovery := NewEvent("discover", "user")
		discovery.User = user
		client.raise(&discovery)
	})

	client.raise(event)
}

// raiseChannel is raiseUser for channels.
func (client *Client) raiseChannel(channel *Channel, event *Event) {
	if event.Channel == nil {
		event.Channel = channel
	}

	channel.raise(event, client, func() {
		discovery := NewEvent("discover", "channel")
		discovery.Channel = channel
		client.raise(&discovery)
	})

	client.raise(event)
}

func (client *Client) handleEventLoop() {
	for {
		select {
		case event := <-client.events:
			{
				client.handleEvent(event)
				event.cancel()
			}
		case <-client.ctx.Done():
			{
				goto end
			}
		}
	}

end:

	client.mutex.RLock()
	conn := client.conn
	client.mutex.RUnlock()
	if conn != nil {
		client.connectionLost(conn, "destroyed")
	}

	event := NewEvent("client", "destroy")
	client.raise(&event)
}

func (client *Client) handleSendLoop() {
	for {
		select {
		case line := <-client.sends:
			if err := client.limiter.Wait(client.ctx); err != nil {
				return
			}

			_ = client.Send(line)
		case <-client.ctx.Done():
			return
		}
	}
}

// handleReadLoop posts the lines from the transport until it fails.
func (client *Client) handleReadLoop(conn *connection) {
	for {
		line, err := conn.transport.ReadLine()
		if err != nil {
			break
		}

		event := NewEvent("hook", "line")
		event.Text = line
		event.conn = conn
		client.post(&event)
	}

	client.mutex.RLock()
	reason := "closed"
	if client.quit {
		reason = "quit"
	}
	client.mutex.RUnlock()

	event := NewEvent("hook", "disconnect")
	event.Text = reason
	event.conn = conn
	client.post(&event)
}

// handlePingLoop asks the event loop to ping the server until the connection
// is lost.
func (client *Client) handlePingLoop(conn *connection) {
	ticker := time.NewTicker(client.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			event := NewEvent("hook", "ping")
			event.conn = conn
			client.post(&event)
		case <-conn.ctx.Done():
			return
		}
	}
}

// handleEvent is always first and gets to break a few rules. Hook events are
// internal, and never reach the handlers.
func (client *Client) handleEvent(event *Event) {
	if event.kind == "hook" {
		client.handleHook(event)
		return
	}

	if event.name == "client.connect" {
		client.register(event.conn)
	}

	client.raise(event)
}

func (client *Client) handleHook(event *Event) {
	switch event.verb {
	case "line":
		if event.conn != nil && !client.isCurrent(event.conn) {
			return
		}

		client.handleLine(event)
	case "disconnect":
		client.connectionLost(event.conn, event.Text)
	case "ping":
		client.sendPing(event.conn)
	case "pingtimeout":
		conn := event.conn
		if conn.lost || !client.isCurrent(conn) {
			return
		}
		if _, ok := conn.pings[event.Text]; !ok {
			return
		}

		client.logger.Println("irc: no reply to ping", event.Text, "within", client.config.PingTimeout)
		client.metrics.PingTimeout()
		client.connectionLost(conn, "ping timeout")
	case "names":
		client.sendDelayedNames(event)
	}
}

func (client *Client) handleLine(event *Event) {
	client.metrics.LineReceived()

	message, err := ParseMessage(event.Text, client.registry, client.config.StripFormatting)
	if err != nil {
		event.err = err

		client.metrics.ParseError()
		client.logger.Println("irc: closing connection:", err)

		errorEvent := NewErrorEvent("parse", err.Error(), err)
		client.raise(&errorEvent)

		client.mutex.RLock()
		conn := client.conn
		client.mutex.RUnlock()
		if conn != nil {
			client.connectionLost(conn, "parse error")
		}

		return
	}

	client.dispatch(message)
}

func (client *Client) isCurrent(conn *connection) bool {
	client.mutex.RLock()
	defer client.mutex.RUnlock()

	return conn != nil && client.conn == conn
}

// isJoined returns true if the client is in the channel.
func (client *Client) isJoined(channel *Channel) bool {
	me := client.registry.Me()
	return me != nil && channel.HasMember(me)
}

// register resets the state of the previous connection and registers the
// client with the server.
func (client *Client) register(conn *connection) {
	if conn == nil || !client.isCurrent(conn) {
		return
	}

	client.isupport.Reset()
	client.registry.reset()
	client.listBuffer = nil

	client.mutex.Lock()
	client.registered = false
	client.mutex.Unlock()

	if client.config.Password != "" {
		_ = client.SendLine("PASS", client.config.Password)
	}

	_ = client.SendLine("NICK", client.config.Nick)
	_ = client.SendLine("USER", client.config.User, "8", "*", ":", client.config.RealName)
}

func (client *Client) setRegistered() {
	client.mutex.Lock()
	client.registered = true
	client.mutex.Unlock()
}

// sendPing pings the server, and arms the timeout for it.
func (client *Client) sendPing(conn *connection) {
	if conn.lost || !client.isCurrent(conn) || !client.Registered() {
		return
	}

	payload := uuid.NewString()
	conn.pings[payload] = time.AfterFunc(client.config.PingTimeout, func() {
		event := NewEvent("hook", "pingtimeout")
		event.Text = payload
		event.conn = conn
		client.post(&event)
	})

	_ = client.SendLine("PING", ":", payload)
}

// acknowledgePing disarms the timeout of a ping.
func (client *Client) acknowledgePing(payload string) {
	client.mutex.RLock()
	conn := client.conn
	client.mutex.RUnlock()
	if conn == nil {
		return
	}

	if timer, ok := conn.pings[payload]; ok {
		timer.Stop()
		delete(conn.pings, payload)
	}
}

// connectionLost tears down the connection. It does nothing if the connection
// is already lost, so client.disconnect is raised only once per connection.
func (client *Client) connectionLost(conn *connection, reason string) {
	if conn == nil || conn.lost {
		return
	}

	conn.lost = true
	conn.cancel()
	_ = conn.transport.Close()

	for payload, timer := range conn.pings {
		timer.Stop()
		delete(conn.pings, payload)
	}

	client.mutex.Lock()
	current := client.conn == conn
	if current {
		client.conn = nil
		client.registered = false

		for key, request := range client.names {
			request.timer.Stop()
			delete(client.names, key)
		}
	}
	client.mutex.Unlock()

	if current {
		client.listBuffer = nil
	}

	client.metrics.Disconnect(reason)

	event := NewEvent("client", "disconnect")
	event.Text = reason
	client.raise(&event)
}

// armNames schedules a NAMES request for the channel.
func (client *Client) armNames(name string) {
	key := client.isupport.Fold(name)

	client.mutex.Lock()
	defer client.mutex.Unlock()

	if previous, ok := client.names[key]; ok {
		previous.timer.Stop()
	}

	client.namesToken++
	token := client.namesToken
	conn := client.conn

	client.names[key] = &namesRequest{
		token: token,
		timer: time.AfterFunc(client.config.NamesDelay, func() {
			event := NewEvent("hook", "names")
			event.Args = append(event.Args, name)
			event.conn = conn
			event.token = token
			client.post(&event)
		}),
	}
}

// cancelNames cancels the scheduled NAMES request for the channel, if any.
func (client *Client) cancelNames(name string) {
	key := client.isupport.Fold(name)

	client.mutex.Lock()
	if request, ok := client.names[key]; ok {
		request.timer.Stop()
		delete(client.names, key)
	}
	client.mutex.Unlock()
}

func (client *Client) sendDelayedNames(event *Event) {
	name := event.Arg(0)
	key := client.isupport.Fold(name)

	client.mutex.Lock()
	request, ok := client.names[key]
	valid := ok && request.token == event.token && client.conn == event.conn
	if valid {
		delete(client.names, key)
	}
	client.mutex.Unlock()

	if valid {
		_ = client.SendLine("NAMES", name)
	}
}

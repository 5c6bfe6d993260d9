package irc

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gissleh/ircengine/ircmetrics"
)

// The Config for an IRC client.
type Config struct {
	// The nick that you go by. By default it's "IrcUser"
	Nick string `json:"nick" yaml:"nick"`

	// Alternatives are a list of nicks to try if Nick is occupied, in order of preference. By default
	// it's your nick with numbers 1 through 9.
	Alternatives []string `json:"alternatives" yaml:"alternatives"`

	// User is sent along with all messages and commonly shown before the @ on join, quit, etc....
	// Some servers tack on a ~ in front of it if you do not have an ident server.
	User string `json:"user" yaml:"user"`

	// RealName is shown in WHOIS as your real name. By default "..."
	RealName string `json:"realName" yaml:"realName"`

	// SkipSSLVerification disables SSL certificate verification. Do not do this
	// in production.
	SkipSSLVerification bool `json:"skipSslVerification" yaml:"skipSslVerification"`

	// The Password used upon connection. This is not your NickServ/SASL password!
	Password string `json:"password" yaml:"password"`

	// SendRate is how many lines per second SendQueued lets through. By default 2.
	SendRate int `json:"sendRate" yaml:"sendRate"`

	// AutoJoinInvites joins channels the client is invited to.
	AutoJoinInvites bool `json:"autoJoinInvites" yaml:"autoJoinInvites"`

	// StripFormatting removes colors, bold and such from message content.
	StripFormatting bool `json:"stripFormatting" yaml:"stripFormatting"`

	// PingInterval is how often the server is pinged. By default 60 seconds.
	PingInterval time.Duration `json:"pingInterval" yaml:"pingInterval"`

	// PingTimeout is how long to wait for a ping to be answered before the
	// connection is considered lost. By default 30 seconds.
	PingTimeout time.Duration `json:"pingTimeout" yaml:"pingTimeout"`

	// NamesDelay is how long to wait for a NAMES reply after joining before
	// asking for it. By default 3 seconds.
	NamesDelay time.Duration `json:"namesDelay" yaml:"namesDelay"`

	// Logger gets diagnostics, like dropped lines and timeouts. By default it's
	// the standard log package.
	Logger DebugLogger `json:"-" yaml:"-"`

	// Metrics is optional.
	Metrics *ircmetrics.Metrics `json:"-" yaml:"-"`
}

// WithDefaults returns the config with the default values
func (config Config) WithDefaults() Config {
	if config.Nick == "" {
		config.Nick = "IrcUser"
	}
	if config.User == "" {
		config.User = "IrcUser"
	}
	if config.RealName == "" {
		config.RealName = "..."
	}
	if config.SendRate <= 0 {
		config.SendRate = 2
	}
	if config.PingInterval <= 0 {
		config.PingInterval = time.Minute
	}
	if config.PingTimeout <= 0 {
		config.PingTimeout = time.Second * 30
	}
	if config.NamesDelay <= 0 {
		config.NamesDelay = time.Second * 3
	}
	if config.Logger == nil {
		config.Logger = &defaultDebugLogger{}
	}

	if len(config.Alternatives) == 0 {
		config.Alternatives = make([]string, 9)
		for i := 0; i < 9; i++ {
			config.Alternatives[i] = config.Nick + strconv.FormatInt(int64(i+1), 10)
		}
	}

	return config
}

// LoadConfig reads a YAML config. Durations are written like "30s". The
// defaults are not applied.
func LoadConfig(reader io.Reader) (Config, error) {
	config := Config{}

	err := yaml.NewDecoder(reader).Decode(&config)
	if err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("irc: could not load config: %w", err)
	}

	return config, nil
}

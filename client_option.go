package shv

import (
	"net/url"
	"strings"
	"time"
)

// LoginType selects how ClientOption.Password is presented to the
// server during login.
type LoginType int

const (
	// LoginTypePlain sends the password unmodified.
	LoginTypePlain LoginType = iota
	// LoginTypeSha1 sends sha1(serverNonce + sha1(password)) hex-encoded,
	// so the plaintext password never crosses the wire.
	LoginTypeSha1
)

// Protocol selects the wire encoding used for RPC message bodies.
type Protocol byte

const (
	ProtocolChainPack Protocol = 1
	ProtocolCpon      Protocol = 2
)

const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultReconnectRetries  = 0
	DefaultReconnectInterval = 1 * time.Minute
)

// SignalHandler receives a signal (method, usually "chng") delivered to
// shvPath, or a sub-path of a subscribed path.
type SignalHandler func(shvPath, method string, params Value)

// NewClientOption parses server (host:port, optionally tcp://-prefixed)
// and returns an option set with the package defaults.
func NewClientOption(server string) (*ClientOption, error) {
	if len(server) > 0 && server[0] == ':' {
		server = "127.0.0.1" + server
	}
	if !strings.Contains(server, "://") {
		server = "tcp://" + server
	}
	remoteURL, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	return &ClientOption{
		server:            remoteURL,
		connectTimeout:    DefaultConnectTimeout,
		loginType:         LoginTypeSha1,
		protocol:          ProtocolChainPack,
		autoReconnectRule: NewAutoReconnectRule(DefaultReconnectRetries, DefaultReconnectInterval),
		onConnectHandler: func(c *Client) {
			_lg.Infof("connected to %s", c.opt.server.Host)
		},
		onDisconnectHandler: func(c *Client) {
			_lg.Infof("disconnected from %s", c.opt.server.Host)
		},
	}, nil
}

// ClientOption configures a Client's connection, login, and reconnect
// behavior. Build one with NewClientOption and the fluent SetX methods.
type ClientOption struct {
	server            *url.URL
	connectTimeout    time.Duration
	autoReconnectRule *AutoReconnectRule

	user      string
	password  string
	loginType LoginType

	deviceId   string
	mountPoint string

	protocol Protocol

	onConnectHandler    OnConnectHandler
	onDisconnectHandler OnDisconnectHandler
	signalHandler       SignalHandler
}

// AutoReconnectRule holds a reconnect retry count and interval. Client
// stores it with its options but does not reconnect by itself: a dropped
// connection stays down until the caller calls Connect again.
type AutoReconnectRule struct {
	retries  int
	interval time.Duration
}

// NewAutoReconnectRule builds a rule holding retries and interval.
func NewAutoReconnectRule(retries int, interval time.Duration) *AutoReconnectRule {
	return &AutoReconnectRule{retries: retries, interval: interval}
}

func (o *ClientOption) SetConnectTimeout(timeout time.Duration) *ClientOption {
	if timeout > 0 {
		o.connectTimeout = timeout
	}
	return o
}

func (o *ClientOption) SetAutoReconnectRule(rule *AutoReconnectRule) *ClientOption {
	if rule == nil {
		return o
	}
	if rule.retries < 0 {
		rule.retries = DefaultReconnectRetries
	}
	if rule.interval < 0 {
		rule.interval = DefaultReconnectInterval
	}
	o.autoReconnectRule = rule
	return o
}

// SetCredentials sets the login user/password pair and the scheme used
// to present the password during login.
func (o *ClientOption) SetCredentials(user, password string, loginType LoginType) *ClientOption {
	o.user = user
	o.password = password
	o.loginType = loginType
	return o
}

// SetDevice sets the device id and/or mount point sent in the login
// options' "device" map, per spec.md §7's device-login shape. Either
// may be left empty; when both are set, only deviceId is sent.
func (o *ClientOption) SetDevice(deviceId, mountPoint string) *ClientOption {
	o.deviceId = deviceId
	o.mountPoint = mountPoint
	return o
}

// SetProtocol selects the wire encoding for message bodies sent by this
// client. The server's reply always uses the same encoding it was sent.
func (o *ClientOption) SetProtocol(p Protocol) *ClientOption {
	o.protocol = p
	return o
}

type OnConnectHandler func(c *Client)

func (o *ClientOption) SetOnConnectHandler(handler OnConnectHandler) *ClientOption {
	if handler != nil {
		o.onConnectHandler = handler
	}
	return o
}

type OnDisconnectHandler func(c *Client)

func (o *ClientOption) SetOnDisconnectHandler(handler OnDisconnectHandler) *ClientOption {
	if handler != nil {
		o.onDisconnectHandler = handler
	}
	return o
}

// SetSignalHandler sets the default handler invoked for any signal whose
// shv path isn't covered by a more specific Client.Subscribe handler.
func (o *ClientOption) SetSignalHandler(handler SignalHandler) *ClientOption {
	o.signalHandler = handler
	return o
}

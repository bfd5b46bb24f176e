package shv

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ConnState is the Client's connection lifecycle state.
type ConnState int32

const (
	StateClosed ConnState = iota
	StateConnecting
	StateConnected
	StateLoggedIn
	StateConnectionError
)

func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateLoggedIn:
		return "LoggedIn"
	case StateConnectionError:
		return "ConnectionError"
	default:
		return "Unknown"
	}
}

func NewClient(opt *ClientOption, lg *logrus.Logger) *Client {
	if lg == nil {
		lg = _lg
	}
	return &Client{
		opt:      opt,
		lg:       lg,
		sendChan: make(chan []byte, 8),
		pending:  make(map[int64]chan RpcMessage),
		signals:  make(map[string]SignalHandler),
	}
}

// Client is a connection to one SHV RPC broker or device: a single TCP
// stream carrying length-prefixed ChainPack or Cpon frames, a blocking
// Call per outstanding request id, and an asynchronous dispatch path for
// signals.
type Client struct {
	opt  *ClientOption
	conn net.Conn
	lg   *logrus.Logger

	state    int32 // ConnState, accessed atomically
	eg       *errgroup.Group
	cancel   context.CancelFunc
	sendChan chan []byte

	mu      sync.Mutex
	pending map[int64]chan RpcMessage
	signals map[string]SignalHandler
}

func (c *Client) State() ConnState {
	return ConnState(atomic.LoadInt32(&c.state))
}

func (c *Client) setState(s ConnState) {
	atomic.StoreInt32(&c.state, int32(s))
}

// Connect dials the server, performs the hello/login handshake, and
// starts the reader/writer pump. It returns once login succeeds or
// fails; Client.Wait blocks until the connection later ends.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	dialer := net.Dialer{Timeout: c.opt.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.opt.server.Host)
	if err != nil {
		c.setState(StateConnectionError)
		return err
	}
	c.conn = conn
	c.setState(StateConnected)

	pumpCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	eg, pumpCtx := errgroup.WithContext(pumpCtx)
	c.eg = eg
	eg.Go(func() error { return c.writePump(pumpCtx) })
	eg.Go(func() error { return c.readPump(pumpCtx) })

	if err := c.login(ctx); err != nil {
		_ = c.Disconnect()
		c.setState(StateConnectionError)
		return err
	}
	c.setState(StateLoggedIn)

	if c.opt.onConnectHandler != nil {
		c.opt.onConnectHandler(c)
	}
	return nil
}

// Wait blocks until the reader/writer pump stops, returning the first
// error either goroutine reported (typically a *TransportClosedError).
func (c *Client) Wait() error {
	if c.eg == nil {
		return nil
	}
	return c.eg.Wait()
}

// Disconnect closes the connection, wakes every pending Call with a
// *TransportClosedError, and moves the client to StateClosed.
func (c *Client) Disconnect() error {
	if c.opt.onDisconnectHandler != nil {
		c.opt.onDisconnectHandler(c)
	}
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.failPending(&TransportClosedError{})
	c.setState(StateClosed)
	return err
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan RpcMessage)
	c.mu.Unlock()

	for id, ch := range pending {
		ch <- RpcMessage{Value: MakeErrorValue(err)}
		_ = id
	}
}

// MakeErrorValue wraps a Go error as an IMap error-response body, used
// to synthesize a response for callers blocked on a connection that
// just closed.
func MakeErrorValue(err error) Value {
	return NewIMap(map[int64]Value{
		KeyError: NewIMap(map[int64]Value{
			ErrKeyCode:    NewInt(ErrCodeMethodCallCancelled),
			ErrKeyMessage: NewString(err.Error()),
		}),
	})
}

func (c *Client) writePump(ctx context.Context) error {
	c.lg.Debug("write pump started")
	defer c.lg.Debug("write pump stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-c.sendChan:
			if _, err := c.conn.Write(frame); err != nil {
				return &TransportClosedError{Cause: err}
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) error {
	c.lg.Debug("read pump started")
	defer c.lg.Debug("read pump stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		protocol, body, err := readFrame(c.conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.setState(StateConnectionError)
			return &TransportClosedError{Cause: err}
		}

		var v Value
		switch protocol {
		case byte(ProtocolChainPack):
			v, err = ReadChainPack(body)
		case byte(ProtocolCpon):
			v, err = ReadCpon(body)
		default:
			err = &MalformedInputError{Reason: fmt.Sprintf("unknown protocol byte %d", protocol)}
		}
		if err != nil {
			c.lg.Errorf("decode frame: %v", err)
			continue
		}

		c.dispatch(RpcMessage{Value: v})
	}
}

func (c *Client) dispatch(msg RpcMessage) {
	if reqId, ok := msg.RequestId(); ok && msg.IsResponse() {
		c.mu.Lock()
		ch, ok := c.pending[reqId]
		if ok {
			delete(c.pending, reqId)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
		} else {
			c.lg.Warnf("response for unknown request id %d", reqId)
		}
		return
	}

	if methodErr, ok := msg.Error(); ok {
		c.lg.Warnf("dropping error signal: %v", methodErr)
		return
	}

	path, _ := msg.ShvPath()
	method, _ := msg.Method()
	params, _ := msg.Params()
	c.applySignal(path, method, params)
}

// longestPrefixHandler returns the Subscribe handler registered for the
// longest subscribed path that is a prefix of path (or equal to it).
// The empty path is the root and is a prefix of every path. Caller must
// hold c.mu.
func (c *Client) longestPrefixHandler(path string) SignalHandler {
	var best string
	var bestHandler SignalHandler
	found := false
	for prefix, handler := range c.signals {
		if prefix != "" && prefix != path && !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		if !found || len(prefix) > len(best) {
			best = prefix
			bestHandler = handler
			found = true
		}
	}
	return bestHandler
}

// Subscribe registers handler for signals on shvPath and any of its
// sub-paths, returning a function that removes the registration. It
// calls .broker/app::subscribe(path), matching clientconnection.py's
// call_shv_method_blocking('.broker/app', 'subscribe', shv_path); a
// falsy result is treated as a failed subscription and no handler is
// registered.
func (c *Client) Subscribe(ctx context.Context, shvPath string, handler SignalHandler) (func(), error) {
	result, err := c.Call(ctx, ".broker/app", "subscribe", NewString(shvPath))
	if err != nil {
		return nil, err
	}
	if result.IsFalsy() {
		return nil, &InvalidValueError{Reason: fmt.Sprintf("subscribe %q refused", shvPath)}
	}

	c.mu.Lock()
	c.signals[shvPath] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.signals, shvPath)
		c.mu.Unlock()
	}, nil
}

// Snapshot fetches the current value tree rooted at shvHome via a
// getLog call and replays it through the same longest-prefix dispatch
// used for live chng signals, so a caller's Subscribe handler sees the
// initial state the same way it sees later updates. This mirrors
// get_snapshot_and_update in clientconnection.py.
func (c *Client) Snapshot(ctx context.Context, shvHome string) error {
	params := NewMap(map[string]Value{
		"recordCountLimit": NewInt(10000),
		"withPathsDict":    NewBool(true),
		"withSnapshot":     NewBool(true),
		"withTypeInfo":     NewBool(false),
		"since":            NewDateTime(DateTime{EpochMs: time.Now().UnixMilli()}),
	})
	result, err := c.Call(ctx, shvHome, "getLog", params)
	if err != nil {
		return err
	}

	pathsDict, err := pathsDictFromMeta(result.Meta)
	if err != nil {
		return err
	}
	rows, ok := result.AsList()
	if !ok {
		return &MalformedInputError{Reason: "getLog result is not a List"}
	}

	for _, row := range rows {
		fields, ok := row.AsList()
		if !ok || len(fields) < 3 {
			continue
		}
		pathIdx, ok := asInt64(fields[1])
		if !ok {
			continue
		}
		path, ok := pathsDict[pathIdx]
		if !ok {
			c.lg.Warnf("getLog row references unknown path index %d", pathIdx)
			continue
		}
		c.applySignal(joinShvPath(shvHome, path), "chng", fields[2])
	}
	return nil
}

// pathsDictFromMeta extracts the getLog response's pathsDict, an IMap of
// row path-index to shv path relative to the queried root.
func pathsDictFromMeta(meta Meta) (map[int64]string, error) {
	if meta == nil {
		return nil, &MalformedInputError{Reason: "getLog response carries no pathsDict"}
	}
	v, ok := meta.Get("pathsDict")
	if !ok {
		return nil, &MalformedInputError{Reason: "getLog response carries no pathsDict"}
	}
	imap, ok := v.AsIMap()
	if !ok {
		return nil, &MalformedInputError{Reason: "pathsDict is not an IMap"}
	}
	out := make(map[int64]string, len(imap))
	for idx, pv := range imap {
		if s, ok := pv.AsString(); ok {
			out[idx] = s
		}
	}
	return out, nil
}

func joinShvPath(base, rel string) string {
	switch {
	case base == "":
		return rel
	case rel == "":
		return base
	default:
		return base + "/" + rel
	}
}

// applySignal dispatches a decoded chng (path, value) pair to the same
// longest-prefix handler table Subscribe registers into.
func (c *Client) applySignal(path, method string, value Value) {
	c.mu.Lock()
	handler := c.longestPrefixHandler(path)
	c.mu.Unlock()
	if handler == nil {
		handler = c.opt.signalHandler
	}
	if handler != nil {
		handler(path, method, value)
	}
}

// Call sends a request to shvPath/method and blocks until the matching
// response arrives, ctx is done, or the connection closes. A response
// carrying an Error value is returned as a *MethodCallError.
func (c *Client) Call(ctx context.Context, shvPath, method string, params Value) (Value, error) {
	reqId := allocateRequestId()
	req := MakeRequest(reqId, shvPath, method, params)

	ch := make(chan RpcMessage, 1)
	c.mu.Lock()
	c.pending[reqId] = ch
	c.mu.Unlock()

	if err := c.send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, reqId)
		c.mu.Unlock()
		return Value{}, err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, reqId)
		c.mu.Unlock()
		return Value{}, ctx.Err()
	case resp := <-ch:
		if _, ok := resp.RequestId(); !ok {
			// Only failPending delivers a message without a request id.
			return Value{}, &TransportClosedError{}
		}
		if methodErr, ok := resp.Error(); ok {
			return Value{}, methodErr
		}
		result, _ := resp.Result()
		return result, nil
	}
}

// globalRequestId is the process-wide monotonic RequestId counter
// (spec.md §4.5): every Client in the process allocates from the same
// sequence, so ids stay unique even when multiple Clients share a
// broker connection's caller-id space.
var globalRequestId int64

// allocateRequestId returns the next monotonic request id. Ids are never
// reused within the process lifetime.
func allocateRequestId() int64 {
	return atomic.AddInt64(&globalRequestId, 1)
}

func (c *Client) send(v Value) error {
	frame, err := buildFrame(v, c.opt.protocol)
	if err != nil {
		return err
	}
	c.sendChan <- frame
	return nil
}

// login performs the SHV hello/login handshake: a parameterless "hello"
// call returns a server nonce, which is folded into the password (for
// LoginTypeSha1) before the "login" call carrying credentials and
// optional device identity is sent.
func (c *Client) login(ctx context.Context) error {
	hello, err := c.Call(ctx, "", "hello", NewUndefined())
	if err != nil {
		return fmt.Errorf("hello: %w", err)
	}

	password := c.opt.password
	if c.opt.loginType == LoginTypeSha1 {
		nonce := ""
		if helloMap, ok := hello.AsMap(); ok {
			if n, ok := helloMap["nonce"]; ok {
				nonce, _ = n.AsString()
			}
		}
		password = sha1Hex(nonce + sha1Hex(password))
	}

	loginTypeName := "PLAIN"
	if c.opt.loginType == LoginTypeSha1 {
		loginTypeName = "SHA1"
	}

	loginMap := map[string]Value{
		"user":     NewString(c.opt.user),
		"password": NewString(password),
		"type":     NewString(loginTypeName),
	}
	options := map[string]Value{
		"idleWatchDogTimeOut": NewInt(0),
	}
	if c.opt.deviceId != "" {
		options["device"] = NewMap(map[string]Value{"deviceId": NewString(c.opt.deviceId)})
	} else if c.opt.mountPoint != "" {
		options["device"] = NewMap(map[string]Value{"mountPoint": NewString(c.opt.mountPoint)})
	}

	params := NewMap(map[string]Value{
		"login":   NewMap(loginMap),
		"options": NewMap(options),
	})
	_, err = c.Call(ctx, "", "login", params)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// buildFrame encodes v in the given protocol and wraps it in the
// length-prefixed wire frame: uint-data(len(body)+1) ++ protocolByte ++
// body.
func buildFrame(v Value, protocol Protocol) ([]byte, error) {
	var body []byte
	var err error
	switch protocol {
	case ProtocolCpon:
		body, err = WriteCpon(v, nil)
	default:
		body, err = WriteChainPack(v)
	}
	if err != nil {
		return nil, err
	}

	lenCtx := NewWriteCtx()
	lenWriter := &chainPackWriter{ctx: lenCtx}
	lenWriter.writeUintData(uint64(len(body) + 1))

	frame := make([]byte, 0, lenCtx.Len()+1+len(body))
	frame = append(frame, lenCtx.Bytes()...)
	frame = append(frame, byte(protocol))
	frame = append(frame, body...)
	return frame, nil
}

// readFrame reads one length-prefixed frame from r and returns its
// protocol byte and body, blocking until the whole frame has arrived.
func readFrame(r io.Reader) (byte, []byte, error) {
	total, err := readFrameLen(r)
	if err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, nil, &MalformedInputError{Reason: "zero-length frame"}
	}
	buf := make([]byte, total)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, nil, err
	}
	return buf[0], buf[1:], nil
}

// readFrameLen decodes the ChainPack prefix-length uint scheme (see
// chainPackReader.readUintDataHelper) directly from a byte stream,
// since the frame length precedes the buffer it describes and so can't
// be read through a ReadCtx.
func readFrameLen(r io.Reader) (uint64, error) {
	var hdr [1]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	head := hdr[0]

	var extra int
	var num uint64
	switch {
	case head&0x80 == 0:
		extra = 0
		num = uint64(head & 0x7F)
	case head&0x40 == 0:
		extra = 1
		num = uint64(head & 0x3F)
	case head&0x20 == 0:
		extra = 2
		num = uint64(head & 0x1F)
	case head&0x10 == 0:
		extra = 3
		num = uint64(head & 0x0F)
	default:
		extra = int(head&0x0F) + 4
	}

	if extra == 0 {
		return num, nil
	}
	buf := make([]byte, extra)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	for _, b := range buf {
		num = (num << 8) | uint64(b)
	}
	return num, nil
}

// subscribedPaths returns the currently subscribed shv paths, sorted,
// mainly useful for diagnostics/tests.
func (c *Client) subscribedPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.signals))
	for p := range c.signals {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

package peerlink

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/ibdsync/ibdsync/app/protocol/common"
	"github.com/ibdsync/ibdsync/app/protocol/protocolerrors"
	"github.com/ibdsync/ibdsync/domain/chainparams"
	"github.com/ibdsync/ibdsync/infrastructure/config"
	"github.com/ibdsync/ibdsync/infrastructure/network/netadapter/router"
	"github.com/ibdsync/ibdsync/util/random"
	"github.com/ibdsync/ibdsync/version"
	"github.com/pkg/errors"
)

// minAcceptableProtocolVersion is the lowest protocol version that a
// connected peer may support. Pings carry nonces from this version on.
const minAcceptableProtocolVersion = wire.BIP0031Version

var (
	handshakeCommands = []string{wire.CmdVersion, wire.CmdVerAck}
	headersCommands   = []string{wire.CmdHeaders}
	blockCommands     = []string{wire.CmdBlock, wire.CmdNotFound}
	pingCommands      = []string{wire.CmdPing}
)

// Link is a message-oriented connection to a single peer. Inbound messages
// are routed by command: handshake messages, headers, blocks and pings each
// get their own route, and every other command is dropped.
type Link struct {
	conn    net.Conn
	address string
	params  *chainparams.Params
	timeout time.Duration

	protocolVersion uint32 // atomic
	nonce           uint64

	router         *router.Router
	handshakeRoute *router.Route
	headersRoute   *router.Route
	blockRoute     *router.Route
	pingRoute      *router.Route

	failOnce sync.Once
	failure  error
	wg       sync.WaitGroup
}

// Dial connects to the peer configured in cfg and returns a started Link.
func Dial(cfg *config.Config) (*Link, error) {
	address := cfg.PeerAddress()
	log.Infof("Connecting to %s", address)
	conn, err := cfg.Dial("tcp", address, config.DefaultConnectTimeout)
	if err != nil {
		return nil, &PeerError{Address: address, Op: "dial", Cause: errors.WithStack(err)}
	}
	return New(conn, cfg.NetParams(), cfg.ResponseTimeout)
}

// New wraps an established connection and starts reading from and writing
// to it. timeout bounds every step of the handshake.
func New(conn net.Conn, params *chainparams.Params, timeout time.Duration) (*Link, error) {
	nonce, err := random.Uint64()
	if err != nil {
		return nil, err
	}
	link := &Link{
		conn:            conn,
		address:         conn.RemoteAddr().String(),
		params:          params,
		timeout:         timeout,
		protocolVersion: wire.ProtocolVersion,
		nonce:           nonce,
		router:          router.NewRouter(),
	}

	link.handshakeRoute, err = link.router.AddIncomingRoute("handshake", handshakeCommands)
	if err != nil {
		return nil, err
	}
	link.headersRoute, err = link.router.AddIncomingRoute("headers", headersCommands)
	if err != nil {
		return nil, err
	}
	link.blockRoute, err = link.router.AddIncomingRouteWithCapacity("blocks", wire.MaxInvPerMsg, blockCommands)
	if err != nil {
		return nil, err
	}
	link.pingRoute, err = link.router.AddIncomingRoute("ping", pingCommands)
	if err != nil {
		return nil, err
	}

	link.start("Link-readLoop", link.readLoop)
	link.start("Link-writeLoop", link.writeLoop)
	link.start("Link-handlePings", link.handlePings)
	return link, nil
}

func (l *Link) start(name string, loop func()) {
	l.wg.Add(1)
	spawn(name, func() {
		defer l.wg.Done()
		loop()
	})
}

// Address returns the remote address of the link.
func (l *Link) Address() string {
	return l.address
}

func (l *Link) currentProtocolVersion() uint32 {
	return atomic.LoadUint32(&l.protocolVersion)
}

// Handshake exchanges version and verack messages with the peer.
func (l *Link) Handshake() error {
	err := l.Send(l.newVersionMessage())
	if err != nil {
		return err
	}

	gotVersion, gotVerAck := false, false
	for !gotVersion || !gotVerAck {
		message, err := l.handshakeRoute.DequeueWithTimeout(l.timeout)
		if err != nil {
			return l.translateRouteError(err)
		}

		switch message := message.(type) {
		case *wire.MsgVersion:
			if gotVersion {
				return protocolerrors.New(true, "received a second version message")
			}
			err := l.acceptVersion(message)
			if err != nil {
				return err
			}
			gotVersion = true
			err = l.Send(wire.NewMsgVerAck())
			if err != nil {
				return err
			}
		case *wire.MsgVerAck:
			gotVerAck = true
		}
	}

	// Version messages past this point are protocol noise and get dropped.
	err = l.router.RemoveRoute(handshakeCommands)
	if err != nil {
		return err
	}
	log.Infof("Completed handshake with %s (protocol version %d)", l.address, l.currentProtocolVersion())
	return nil
}

func (l *Link) newVersionMessage() *wire.MsgVersion {
	me := wire.NewNetAddressIPPort(net.IPv4zero, 0, 0)
	you := wire.NewNetAddressIPPort(net.IPv4zero, 0, wire.SFNodeNetwork)
	if tcpAddress, ok := l.conn.RemoteAddr().(*net.TCPAddr); ok {
		you = wire.NewNetAddress(tcpAddress, wire.SFNodeNetwork)
	}
	msgVersion := wire.NewMsgVersion(me, you, l.nonce, 0)
	_ = msgVersion.AddUserAgent(version.UserAgentName, version.Version())
	msgVersion.DisableRelayTx = true
	return msgVersion
}

func (l *Link) acceptVersion(msgVersion *wire.MsgVersion) error {
	if msgVersion.Nonce == l.nonce {
		return protocolerrors.New(false, "connected to self")
	}
	if msgVersion.ProtocolVersion < int32(minAcceptableProtocolVersion) {
		return protocolerrors.Errorf(false, "protocol version must be %d or greater, got %d",
			minAcceptableProtocolVersion, msgVersion.ProtocolVersion)
	}
	if uint32(msgVersion.ProtocolVersion) < l.currentProtocolVersion() {
		atomic.StoreUint32(&l.protocolVersion, uint32(msgVersion.ProtocolVersion))
	}
	log.Debugf("Peer %s runs %s with protocol version %d at height %d",
		l.address, msgVersion.UserAgent, msgVersion.ProtocolVersion, msgVersion.LastBlock)
	return nil
}

// Send queues message to be written to the peer.
func (l *Link) Send(message wire.Message) error {
	err := l.router.OutgoingRoute().Enqueue(message)
	if err != nil {
		return l.translateRouteError(err)
	}
	return nil
}

// WaitFor blocks until a message of the given kind arrives or timeout
// expires. Timeouts surface as router.ErrTimeout and transport failures as
// *PeerError.
func (l *Link) WaitFor(kind common.ResponseKind, timeout time.Duration) (wire.Message, error) {
	var route *router.Route
	switch kind {
	case common.ResponseHeaders:
		route = l.headersRoute
	case common.ResponseBlock:
		route = l.blockRoute
	default:
		return nil, errors.Errorf("unknown response kind %d", kind)
	}

	message, err := route.DequeueWithTimeout(timeout)
	if err != nil {
		return nil, l.translateRouteError(err)
	}
	return message, nil
}

// translateRouteError replaces a closed-route error with the failure that
// closed the router, if there was one.
func (l *Link) translateRouteError(err error) error {
	if !errors.Is(err, router.ErrRouteClosed) {
		return err
	}
	if l.failure != nil {
		return l.failure
	}
	return err
}

func (l *Link) fail(op string, cause error) {
	l.failOnce.Do(func() {
		l.failure = &PeerError{Address: l.address, Op: op, Cause: cause}
		if errors.Is(cause, ErrLinkClosed) {
			log.Debugf("Closing link to %s", l.address)
		} else {
			log.Warnf("Disconnecting from %s: %s", l.address, l.failure)
		}
		l.router.Close()
		_ = l.conn.Close()
	})
}

// Close disconnects from the peer and waits for the link's goroutines to
// exit.
func (l *Link) Close() {
	l.fail("close", ErrLinkClosed)
	l.wg.Wait()
}

func (l *Link) readLoop() {
	for {
		message, _, err := wire.ReadMessage(l.conn, l.currentProtocolVersion(), l.params.Net)
		if err != nil {
			var messageErr *wire.MessageError
			if errors.As(err, &messageErr) {
				// ReadMessage consumes the payload of messages it can't
				// decode, so the stream is still aligned.
				log.Debugf("Ignoring malformed message from %s: %s", l.address, err)
				continue
			}
			l.fail("read", errors.WithStack(err))
			return
		}
		log.Tracef("Received %s from %s", message.Command(), l.address)

		err = l.router.EnqueueIncomingMessage(message)
		if err != nil {
			switch {
			case errors.Is(err, router.ErrNoRoute):
				log.Tracef("Dropping unrouted %s from %s", message.Command(), l.address)
			case errors.Is(err, router.ErrRouteClosed):
				return
			default:
				l.fail("route", err)
				return
			}
		}
	}
}

func (l *Link) writeLoop() {
	for {
		message, err := l.router.OutgoingRoute().Dequeue()
		if err != nil {
			return
		}
		err = wire.WriteMessage(l.conn, message, l.currentProtocolVersion(), l.params.Net)
		if err != nil {
			l.fail("write", errors.WithStack(err))
			return
		}
		log.Tracef("Sent %s to %s", message.Command(), l.address)
	}
}

// handlePings answers every ping so the peer doesn't disconnect us while
// we're busy downloading.
func (l *Link) handlePings() {
	for {
		message, err := l.pingRoute.Dequeue()
		if err != nil {
			return
		}
		ping := message.(*wire.MsgPing)
		err = l.Send(wire.NewMsgPong(ping.Nonce))
		if err != nil {
			return
		}
	}
}

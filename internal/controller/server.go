package controller

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chirouter-go/chirouter/internal/engine"
	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/netlog"
	"github.com/chirouter-go/chirouter/internal/pcapw"
	"github.com/chirouter-go/chirouter/internal/routing"
	"github.com/chirouter-go/chirouter/internal/rtablefile"
)

// state is the per-connection protocol state described in
// original_source/src/c/server.h: a connection starts in stateHelloWait,
// advances to stateConfig once HELLO completes, and to stateRunning once
// END_CONFIG is received. A connection never returns to an earlier state;
// disconnecting and reconnecting starts a fresh one at stateHelloWait.
type state int

const (
	stateHelloWait state = iota
	stateConfig
	stateRunning
)

// Server accepts controller connections and, for each one, runs the
// configuration handshake followed by the running-phase frame loop. Each
// connection owns an independent set of Router instances: Server itself
// holds no router state between connections.
type Server struct {
	log    *logrus.Entry
	pcap   *pcapw.Writer
	rtable []byte
}

// New constructs a Server. pcap may be nil to disable packet capture.
func New(log *logrus.Entry, pcap *pcapw.Writer) *Server {
	return &Server{log: log, pcap: pcap}
}

// WithRTableFile makes every router configured from this point on resolve
// its routing table from contents (the DEST GATEWAY MASK INTERFACE_NAME
// format parsed by internal/rtablefile) instead of the controller's
// RTABLE_ENTRY messages, mirroring the original router's own --rtable
// standalone mode. Any RTABLE_ENTRY messages the controller still sends are
// read to stay in sync with the wire protocol, then discarded.
func (s *Server) WithRTableFile(contents []byte) *Server {
	s.rtable = contents
	return s
}

// Serve accepts connections on ln until ctx is cancelled. Each accepted
// connection is handled on its own goroutine and does not block other
// connections or the accept loop; a controller that disconnects and
// reconnects simply starts a new configuration handshake.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return errors.Wrap(err, "controller: accept")
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn drives one controller connection through its entire lifetime:
// handshake, configuration, and running phase, until the connection closes
// or ctx is cancelled.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	connLog := s.log.WithField("remote", conn.RemoteAddr())
	connLog.Info("controller: connection accepted")
	defer conn.Close()

	routers, err := s.configure(conn, connLog)
	if err != nil {
		connLog.WithError(err).Warn("controller: configuration failed, closing connection")
		return
	}
	defer func() {
		for _, r := range routers {
			r.router.Stop()
		}
	}()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, r := range routers {
		r.router.Start(connCtx)
	}

	connLog.Info("controller: entering running phase")
	if err := s.run(conn, routers, connLog); err != nil && err != io.EOF {
		connLog.WithError(err).Info("controller: connection closed")
	} else {
		connLog.Info("controller: connection closed")
	}
}

// routerHandle ties together one configured router, its controller-facing
// sink, and the wire-protocol router ID used to address it.
type routerHandle struct {
	id     uint8
	router *engine.Router
	sink   *connSink
}

// configure runs the HELLO handshake and the configuration phase
// (ROUTERS/ROUTER/INTERFACE/RTABLE_ENTRY/END_CONFIG), returning one
// fully-built Router per configured router. Any protocol violation aborts
// configuration with an error; per spec, the connection must then close.
func (s *Server) configure(conn net.Conn, log *logrus.Entry) ([]routerHandle, error) {
	hello, err := ReadMessage(conn)
	if err != nil {
		return nil, errors.Wrap(err, "reading HELLO")
	}
	if hello.Type != MsgHello || hello.Subtype != SubtypeToRouter {
		return nil, errors.Errorf("expected HELLO/ToRouter, got %s/%d", hello.Type, hello.Subtype)
	}
	if err := WriteMessage(conn, Message{Type: MsgHello, Subtype: SubtypeFromRouter}); err != nil {
		return nil, errors.Wrap(err, "writing HELLO reply")
	}

	routersMsg, err := expect(conn, MsgRouters)
	if err != nil {
		return nil, err
	}
	routersPayload, err := DecodeRouters(routersMsg.Payload)
	if err != nil {
		return nil, err
	}

	var handles []routerHandle
	for i := 0; i < int(routersPayload.NumRouters); i++ {
		rh, err := s.configureOneRouter(conn, uint8(i), log)
		if err != nil {
			return nil, err
		}
		handles = append(handles, rh)
	}

	if _, err := expect(conn, MsgEndConfig); err != nil {
		return nil, err
	}
	return handles, nil
}

func (s *Server) configureOneRouter(conn net.Conn, expectedID uint8, log *logrus.Entry) (routerHandle, error) {
	routerMsg, err := expect(conn, MsgRouter)
	if err != nil {
		return routerHandle{}, err
	}
	rp, err := DecodeRouter(routerMsg.Payload)
	if err != nil {
		return routerHandle{}, err
	}
	if rp.RouterID != expectedID {
		return routerHandle{}, errors.Errorf("router ID out of sequence: expected %d, got %d", expectedID, rp.RouterID)
	}

	ifaces := make([]*iface.Interface, rp.NumInterfaces)
	for i := 0; i < int(rp.NumInterfaces); i++ {
		msg, err := expect(conn, MsgInterface)
		if err != nil {
			return routerHandle{}, err
		}
		ip, err := DecodeInterface(msg.Payload)
		if err != nil {
			return routerHandle{}, err
		}
		if int(ip.InterfaceID) != i {
			return routerHandle{}, errors.Errorf("interface ID out of sequence: expected %d, got %d", i, ip.InterfaceID)
		}
		ifaces[i] = &iface.Interface{
			ID:   int(ip.InterfaceID),
			Name: ip.Name,
			MAC:  ip.HWAddr,
			IP:   ip.IPAddr,
		}
	}
	ifaceList := iface.NewList(ifaces)

	entries := make([]routing.Entry, rp.NumRTableEntry)
	for i := 0; i < int(rp.NumRTableEntry); i++ {
		msg, err := expect(conn, MsgRTableEntry)
		if err != nil {
			return routerHandle{}, err
		}
		rte, err := DecodeRTableEntry(msg.Payload)
		if err != nil {
			return routerHandle{}, err
		}
		egress := ifaceList.ByID(int(rte.InterfaceID))
		if egress == nil {
			return routerHandle{}, errors.Errorf("rtable entry references unknown interface %d", rte.InterfaceID)
		}
		entries[i] = routing.Entry{
			Dest:    rte.Dest,
			Mask:    rte.Mask,
			Gateway: rte.Gateway,
			Metric:  rte.Metric,
			Iface:   egress,
		}
	}

	if s.rtable != nil {
		fileEntries, err := rtablefile.Parse(bytes.NewReader(s.rtable), ifaceList)
		if err != nil {
			return routerHandle{}, errors.Wrap(err, "parsing --rtable file")
		}
		entries = fileEntries
	}

	sink := &connSink{conn: conn, routerID: rp.RouterID, pcap: s.pcap, routerName: rp.Name}
	router := engine.NewRouter(rp.Name, ifaceList, routing.NewTable(entries), sink, log)

	if s.pcap != nil {
		for _, ifc := range ifaces {
			if err := s.pcap.RegisterInterface(rp.Name+"-"+ifc.Name, ifc.MAC); err != nil {
				return routerHandle{}, errors.Wrap(err, "registering interface for capture")
			}
		}
	}

	return routerHandle{id: rp.RouterID, router: router, sink: sink}, nil
}

// run is the running-phase loop: read ETHERNET_FRAME messages until the
// connection closes, dispatching each to the router/interface it names.
func (s *Server) run(conn net.Conn, routers []routerHandle, log *logrus.Entry) error {
	byID := make(map[uint8]routerHandle, len(routers))
	for _, r := range routers {
		byID[r.id] = r
	}

	for {
		msg, err := ReadMessage(conn)
		if err != nil {
			return err
		}
		if msg.Type != MsgEthernetFrame {
			log.WithField("type", msg.Type).Debug("controller: ignoring unexpected message in running phase")
			continue
		}
		ef, err := DecodeEthernetFrame(msg.Payload)
		if err != nil {
			log.WithError(err).Debug("controller: dropping malformed ETHERNET_FRAME")
			continue
		}
		rh, ok := byID[ef.RouterID]
		if !ok {
			log.WithField("router_id", ef.RouterID).Warn("controller: frame for unknown router, dropping")
			continue
		}
		ingress := rh.router.Ifaces.ByID(int(ef.InterfaceID))
		if ingress == nil {
			log.WithField("interface_id", ef.InterfaceID).Warn("controller: frame for unknown interface, dropping")
			continue
		}
		log.WithField("interface", ingress.Name).Trace(netlog.Summary(ef.Frame))
		if rh.sink.pcap != nil {
			rh.sink.pcap.WriteFrame(rh.sink.routerName+"-"+ingress.Name, ef.Frame, now(), pcapw.DirectionInbound)
		}
		rh.router.HandleFrame(ingress, ef.Frame)
	}
}

func expect(conn net.Conn, want MsgType) (Message, error) {
	msg, err := ReadMessage(conn)
	if err != nil {
		return Message{}, errors.Wrapf(err, "reading %s", want)
	}
	if msg.Type != want {
		return Message{}, errors.Errorf("expected %s, got %s", want, msg.Type)
	}
	return msg, nil
}

// connSink is the iface.Sink a router uses to emit frames back to its
// controller connection, tagging each with its wire-protocol router ID and
// mirroring it to the capture file if one is active.
type connSink struct {
	mu         sync.Mutex
	conn       net.Conn
	routerID   uint8
	routerName string
	pcap       *pcapw.Writer
}

func (c *connSink) Send(out *iface.Interface, frame []byte) {
	if c.pcap != nil {
		c.pcap.WriteFrame(c.routerName+"-"+out.Name, frame, now(), pcapw.DirectionOutbound)
	}
	msg := EncodeEthernetFrame(c.routerID, uint8(out.ID), frame)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteMessage(c.conn, msg); err != nil {
		// The read loop will observe the same broken connection and tear
		// the router down; nothing further to do from the send path.
		return
	}
}

// now is a seam for time.Now so capture timestamps can be deterministic in
// tests that construct a connSink directly.
var now = time.Now

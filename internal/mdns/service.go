// Package mdns advertises the GraphQL endpoint on the local network
// through the avahi daemon.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/holoplot/go-avahi"
)

const (
	// ServiceType is the DNS-SD service type of a library server.
	ServiceType = "_library-graphql._tcp"

	// GraphQLPath is advertised in the TXT record so clients need no
	// further configuration.
	GraphQLPath = "/graphql"

	// ServerVersion is advertised in TXT records.
	ServerVersion = "1.0.0"
)

// Advertisement describes what gets published.
type Advertisement struct {
	Name string
	Port int
}

// TXT returns the TXT record entries for a.
func (a Advertisement) TXT() [][]byte {
	return [][]byte{
		[]byte("path=" + GraphQLPath),
		[]byte("version=" + ServerVersion),
		[]byte("name=" + a.Name),
	}
}

// publisher is the part of avahi the service drives.
type publisher interface {
	Publish(name string, port int, txt [][]byte) error
	Close()
}

// Service manages the advertisement lifecycle.
type Service struct {
	logger  *slog.Logger
	dial    func() (publisher, error)
	current publisher
	mu      sync.Mutex
}

// NewService creates a new mDNS service talking to avahi on the system bus.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		dial:   dialAvahi,
	}
}

// Start begins advertising. It replaces any running advertisement. An
// error usually means there is no avahi daemon or no system bus, as in
// most containers, and callers treat it as non-fatal.
func (s *Service) Start(ad Advertisement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Close()
		s.current = nil
	}

	name := ad.Name
	if name == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "library-server"
		}
		name = host
	}
	ad.Name = name

	p, err := s.dial()
	if err != nil {
		return fmt.Errorf("connect to avahi: %w", err)
	}
	if err := p.Publish(name, ad.Port, ad.TXT()); err != nil {
		p.Close()
		return fmt.Errorf("publish %s: %w", ServiceType, err)
	}
	s.current = p

	s.logger.Info("mDNS advertisement started",
		slog.String("service", ServiceType),
		slog.String("name", name),
		slog.Int("port", ad.Port))
	return nil
}

// Stop withdraws the advertisement. Safe to call when not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Close()
		s.current = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}

// Running reports whether an advertisement is published.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

type avahiPublisher struct {
	conn   *dbus.Conn
	server *avahi.Server
	group  *avahi.EntryGroup
}

func dialAvahi() (publisher, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	server, err := avahi.ServerNew(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &avahiPublisher{conn: conn, server: server}, nil
}

func (p *avahiPublisher) Publish(name string, port int, txt [][]byte) error {
	group, err := p.server.EntryGroupNew()
	if err != nil {
		return err
	}
	p.group = group

	if err := group.AddService(avahi.InterfaceUnspec, avahi.ProtoUnspec, 0,
		name, ServiceType, "local", "", uint16(port), txt); err != nil {
		return err
	}
	return group.Commit()
}

func (p *avahiPublisher) Close() {
	if p.group != nil {
		p.server.EntryGroupFree(p.group)
		p.group = nil
	}
	p.server.Close()
	p.conn.Close()
}

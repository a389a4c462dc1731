package discovery

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service relays register under.
const ServiceType = "_gridsync._tcp"

const boardKey = "board="

// Relay is a relay found on the network.
type Relay struct {
	Instance string
	Addr     string // host:port
	Board    string
}

// URL returns the relay's WebSocket endpoint.
func (r Relay) URL() string { return "ws://" + r.Addr + "/ws" }

// Advertise announces a relay for board on port until the returned server is
// shut down.
func Advertise(port int, board string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("discovery: hostname: %w", err)
	}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{boardKey + board})
	if err != nil {
		return nil, fmt.Errorf("discovery: create service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: start mDNS server: %w", err)
	}
	return server, nil
}

// Browse queries the network for timeout and returns the relays serving
// board; an empty board matches every relay.
func Browse(board string, timeout time.Duration) ([]Relay, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []Relay)
	go func() {
		var found []Relay
		seen := make(map[string]bool)
		for e := range entries {
			r, ok := relayFrom(e)
			if !ok || seen[r.Addr] || (board != "" && r.Board != board) {
				continue
			}
			seen[r.Addr] = true
			found = append(found, r)
		}
		done <- found
	}()
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	found := <-done
	if err != nil {
		return found, fmt.Errorf("discovery: query %s: %w", ServiceType, err)
	}
	return found, nil
}

func relayFrom(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.Port == 0 {
		return Relay{}, false
	}
	ip := e.AddrV4
	if ip == nil {
		ip = e.AddrV6
	}
	if ip == nil {
		return Relay{}, false
	}
	r := Relay{Instance: e.Name, Addr: net.JoinHostPort(ip.String(), fmt.Sprint(e.Port))}
	fields := e.InfoFields
	if len(fields) == 0 && e.Info != "" {
		fields = strings.Split(e.Info, "|")
	}
	for _, f := range fields {
		if strings.HasPrefix(f, boardKey) {
			r.Board = strings.TrimPrefix(f, boardKey)
		}
	}
	return r, true
}

// LocalIPv4 returns the first non-loopback IPv4 address of an interface that
// is up, or 127.0.0.1.
func LocalIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}

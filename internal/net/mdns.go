package net

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_collabboard._tcp"

// Host is a board found on the local network.
type Host struct {
	Name string
	Addr string
	Room string
}

// Link returns the share link that joins h.
func (h Host) Link() string {
	return ShareLink(h.Addr, h.Room)
}

// Advertise announces a hosted room on the local network. Close the
// returned server to stop.
func Advertise(port int, room string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	info := []string{"CollabBoard", "room=" + room}
	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, []net.IP{firstIPv4()}, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for advertised rooms for up to timeout and calls found for
// each one.
func Browse(timeout time.Duration, found func(Host)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if h, ok := hostFromEntry(e); ok {
				found(h)
			}
		}
	}()
	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mdns browse: %w", err)
	}
	return nil
}

func hostFromEntry(e *mdns.ServiceEntry) (Host, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Host{}, false
	}
	h := Host{
		Name: strings.TrimSuffix(e.Name, "."+serviceType+".local."),
		Addr: fmt.Sprintf("%s:%d", e.AddrV4, e.Port),
	}
	for _, field := range e.InfoFields {
		if room, ok := strings.CutPrefix(field, "room="); ok {
			h.Room = room
		}
	}
	return h, true
}

// firstIPv4 returns the address of the first interface that is up and not
// a loopback.
func firstIPv4() net.IP {
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

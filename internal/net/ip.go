package net

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
)

// Scheme prefixes share links.
const Scheme = "collabboard://"

// ErrBadLink is returned for links that are not share links.
var ErrBadLink = errors.New("not a collabboard link")

// GetOutgoingIP finds the local address other machines can reach the host
// on.
func GetOutgoingIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// offline networks still have a LAN address
		return getLocalIPFallback()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

func getLocalIPFallback() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
	}
	log.Println("[NET] No suitable local IP found, share links will only work on this machine")
	return "127.0.0.1", nil
}

// ShareLink builds the link peers open to join room on addr (host:port).
func ShareLink(addr, room string) string {
	if room == "" {
		return Scheme + addr
	}
	return Scheme + addr + "/" + url.PathEscape(room)
}

// ParseShareLink splits a share link into host:port and room. The room is
// empty when the link names none.
func ParseShareLink(link string) (addr, room string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(link), Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrBadLink, link)
	}
	addr, room, _ = strings.Cut(strings.TrimSuffix(rest, "/"), "/")
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	room, err = url.PathUnescape(room)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	return addr, room, nil
}

// HubURL is the websocket base URL of the hub at addr.
func HubURL(addr string) string {
	return "ws://" + addr
}

// Package discovery advertises relays on the local network with mDNS and
// finds them from peers, so a LAN session needs no configured address.
package discovery

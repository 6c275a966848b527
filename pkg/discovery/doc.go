// Package discovery finds HTP-1 processors on the local network.
//
// The HTP-1 advertises its web and control interface over mDNS. This
// package browses for those announcements and yields candidate hosts
// for the client, so applications can offer a picker instead of asking
// the user to type an address.
package discovery

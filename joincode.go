package main

import (
	"fmt"
	"net"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

// JoinAddress returns the host:port other players pass to -join. It picks
// the first non-loopback IPv4 address and falls back to localhost.
func JoinAddress(port int) string {
	host := "127.0.0.1"
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok || ipn.IP.IsLoopback() {
				continue
			}
			if ip4 := ipn.IP.To4(); ip4 != nil {
				host = ip4.String()
				break
			}
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// JoinQR renders addr as a QR code made of terminal half blocks
func JoinQR(addr string) (string, error) {
	q, err := qrcode.New(addr, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("join code: %w", err)
	}
	return q.ToSmallString(false), nil
}

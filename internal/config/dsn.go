package config

import (
	"net"
	"net/url"
	"strconv"
)

func urlEscape(s string) string {
	return url.QueryEscape(s)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

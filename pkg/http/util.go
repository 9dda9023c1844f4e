package http

import (
	"net"

	"github.com/labstack/echo/v4"
)

// ClientIP returns the caller address without the port.
func ClientIP(c echo.Context) string {
	ip := c.RealIP()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

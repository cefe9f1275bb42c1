package util

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var ipServices = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
}

// publicIP asks the lookup services in order and returns the first answer.
func publicIP(ctx context.Context, client *http.Client) (string, error) {
	for _, service := range ipServices {
		ip, err := lookupIP(ctx, client, service)
		if err != nil {
			log.Debugf("public IP lookup via %s failed: %v", service, err)
			continue
		}
		return ip, nil
	}
	return "", fmt.Errorf("all IP services failed")
}

func lookupIP(ctx context.Context, client *http.Client, service string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, service, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("unexpected response %q", ip)
	}
	return ip, nil
}

// outboundIP returns the local address used for outbound traffic. No packet is sent.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = conn.Close()
	}()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("could not assert UDP address type")
	}
	return localAddr.IP.String(), nil
}

// GetIPAddress prefers the public address, then the outbound one, then loopback.
func GetIPAddress(ctx context.Context) string {
	if ip, err := publicIP(ctx, http.DefaultClient); err == nil {
		return ip
	}
	if ip, err := outboundIP(); err == nil {
		return ip
	}
	return "127.0.0.1"
}

// WriteSSHTunnelInstructions explains how to forward the callback port when the
// browser runs on a different machine than the CLI.
func WriteSSHTunnelInstructions(w io.Writer, port int, host string) {
	border := strings.Repeat("=", 80)
	_, _ = fmt.Fprintln(w, "If your browser runs on another machine, forward the callback port first.")
	_, _ = fmt.Fprintln(w, border)
	_, _ = fmt.Fprintln(w, "  Run on the machine with the browser:")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "  ssh -L %d:127.0.0.1:%d <user>@%s -p 22\n", port, port, host)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "  Adjust '-p 22' if the SSH server listens on another port.")
	_, _ = fmt.Fprintln(w, border)
}

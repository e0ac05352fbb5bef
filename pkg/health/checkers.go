package health

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// maxOutput caps how much command output ends up in a result message
const maxOutput = 100

func newResult(start time.Time, healthy bool, format string, args ...interface{}) Result {
	return Result{
		Healthy:   healthy,
		Message:   fmt.Sprintf(format, args...),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// HTTPChecker requests a URL from the monitor host. Any 2xx or 3xx answer
// is healthy unless Accept lists the acceptable codes.
type HTTPChecker struct {
	URL     string
	Method  string
	Headers map[string]string
	Accept  []int

	client *http.Client
}

// NewHTTPChecker creates a GET checker for url
func NewHTTPChecker(url string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		URL:     url,
		Method:  http.MethodGet,
		Headers: map[string]string{},
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *HTTPChecker) accepts(code int) bool {
	if len(h.Accept) > 0 {
		return slices.Contains(h.Accept, code)
	}
	return code >= 200 && code < 400
}

// Check performs one request
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, nil)
	if err != nil {
		return newResult(start, false, "invalid request: %v", err)
	}
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return newResult(start, false, "request failed: %v", err)
	}
	defer resp.Body.Close()

	return newResult(start, h.accepts(resp.StatusCode), "%s %s: HTTP %d", h.Method, h.URL, resp.StatusCode)
}

func (h *HTTPChecker) Type() CheckType { return CheckTypeHTTP }

// TCPChecker opens a connection to host:port
type TCPChecker struct {
	Address string

	dialer net.Dialer
}

// NewTCPChecker creates a checker for address
func NewTCPChecker(address string, timeout time.Duration) *TCPChecker {
	return &TCPChecker{Address: address, dialer: net.Dialer{Timeout: timeout}}
}

// Check dials once and closes the connection right away
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	conn, err := t.dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return newResult(start, false, "connection failed: %v", err)
	}
	conn.Close()

	return newResult(start, true, "connected to %s", t.Address)
}

func (t *TCPChecker) Type() CheckType { return CheckTypeTCP }

// ExecChecker runs a command on the monitor host, e.g.
// ["docker", "exec", "shop_bi_db", "pg_isready"]. Exit status 0 is healthy.
type ExecChecker struct {
	Command []string
	Timeout time.Duration
}

// NewExecChecker creates a checker for argv
func NewExecChecker(argv []string, timeout time.Duration) *ExecChecker {
	return &ExecChecker{Command: argv, Timeout: timeout}
}

// Check runs the command once
func (e *ExecChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if len(e.Command) == 0 {
		return newResult(start, false, "no command specified")
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := truncate(strings.TrimSpace(out.String()))
	if err != nil {
		return newResult(start, false, "%s: %v %s", e.Command[0], err, output)
	}
	return newResult(start, true, "%s: ok %s", e.Command[0], output)
}

func (e *ExecChecker) Type() CheckType { return CheckTypeExec }

func truncate(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	return s[:maxOutput] + "..."
}

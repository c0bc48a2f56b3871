// Command smoke exercises a running Architecture Customizer API end to end:
// health, authentication, a command observed on the session stream and undo.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/auth"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/engine"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/gateway"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// TestResult is the outcome of one smoke check
type TestResult struct {
	TestName string
	Success  bool
	Error    error
	Details  string
}

type client struct {
	baseURL string
	token   string
	scope   string
	http    *http.Client
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the running API")
	email := flag.String("email", "", "Operator email used to log in")
	password := flag.String("password", "", "Operator password used to log in")
	command := flag.String("command", "add an audit log entity", "Command sent during the stream check")
	timeout := flag.Duration("timeout", 60*time.Second, "How long to wait for each resolver-backed call")
	flag.Parse()

	log.Println("Starting Architecture Customizer smoke test")

	c := &client{
		baseURL: strings.TrimRight(*baseURL, "/"),
		scope:   fmt.Sprintf("smoke-%d", time.Now().UnixNano()),
		http:    &http.Client{Timeout: *timeout},
	}

	results := []TestResult{testHealth(c)}

	token, result := obtainToken(c, *email, *password)
	results = append(results, result)
	if token == "" {
		printTestResults(results)
		os.Exit(1)
	}
	c.token = token

	results = append(results,
		testStreamRejectsAnonymous(c),
		testCommandOnStream(c, *command, *timeout),
		testUndo(c),
		testSuggestions(c),
	)

	if !printTestResults(results) {
		os.Exit(1)
	}
}

func testHealth(c *client) TestResult {
	log.Println("Check 1: health and readiness")

	for _, path := range []string{"/health", "/ready"} {
		resp, err := c.http.Get(c.baseURL + path)
		if err != nil {
			return TestResult{TestName: "Health", Error: err, Details: "Failed to reach " + path}
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return TestResult{
				TestName: "Health",
				Error:    fmt.Errorf("unexpected status code: %d", resp.StatusCode),
				Details:  path + " is not healthy",
			}
		}
	}
	return TestResult{TestName: "Health", Success: true, Details: "/health and /ready respond 200"}
}

// obtainToken logs in when credentials are given, otherwise mints a token with JWT_SECRET
func obtainToken(c *client, email, password string) (string, TestResult) {
	log.Println("Check 2: authentication")

	if email == "" {
		jm, err := auth.NewJWTManager()
		if err != nil {
			return "", TestResult{TestName: "Authentication", Error: err, Details: "Pass -email/-password or set JWT_SECRET"}
		}
		token, err := jm.GenerateToken(context.Background(), "smoke-test", "smoke@example.com", []string{"owner"}, time.Hour)
		if err != nil {
			return "", TestResult{TestName: "Authentication", Error: err, Details: "Failed to mint token"}
		}
		return token, TestResult{TestName: "Authentication", Success: true, Details: "Minted token from JWT_SECRET"}
	}

	var resp models.LoginResponse
	status, err := c.postJSON("/api/auth/login", models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", TestResult{TestName: "Authentication", Error: err, Details: "Login request failed"}
	}
	if status != http.StatusOK {
		return "", TestResult{TestName: "Authentication", Error: fmt.Errorf("unexpected status code: %d", status), Details: "Login rejected"}
	}
	return resp.Token, TestResult{TestName: "Authentication", Success: true, Details: "Logged in as " + resp.User.Email}
}

func testStreamRejectsAnonymous(c *client) TestResult {
	log.Println("Check 3: session stream rejects anonymous connections")

	conn, resp, err := websocket.DefaultDialer.Dial(c.wsURL(false), nil)
	if err == nil {
		conn.Close()
		return TestResult{
			TestName: "Stream Authentication",
			Error:    fmt.Errorf("connection succeeded without JWT"),
			Details:  "The session stream must reject connections without a token",
		}
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return TestResult{TestName: "Stream Authentication", Error: err, Details: "Expected 401 Unauthorized for missing JWT"}
	}
	return TestResult{TestName: "Stream Authentication", Success: true, Details: "Anonymous stream connections are rejected"}
}

func testCommandOnStream(c *client, command string, timeout time.Duration) TestResult {
	log.Println("Check 4: applied command is pushed on the session stream")

	header := http.Header{}
	header.Set(gateway.SessionHeader, c.scope)
	conn, _, err := websocket.DefaultDialer.Dial(c.wsURL(true), header)
	if err != nil {
		return TestResult{TestName: "Command on Stream", Error: err, Details: "Failed to open the session stream"}
	}
	defer conn.Close()

	var result models.CommandResult
	status, err := c.postJSON("/api/architecture/command", map[string]interface{}{
		"command":  command,
		"document": map[string]interface{}{"name": "smoke", "entities": []interface{}{}},
	}, &result)
	if err != nil || status != http.StatusOK {
		return TestResult{TestName: "Command on Stream", Error: errOrStatus(err, status), Details: "Command request failed"}
	}
	if !result.Success {
		return TestResult{
			TestName: "Command on Stream",
			Error:    fmt.Errorf("command was not applied"),
			Details:  result.Explanation.En,
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var event models.SessionEvent
	if err := conn.ReadJSON(&event); err != nil {
		return TestResult{TestName: "Command on Stream", Error: err, Details: "No event received"}
	}
	if event.Type != models.EventCommandApplied {
		return TestResult{TestName: "Command on Stream", Error: fmt.Errorf("unexpected event type %q", event.Type)}
	}
	return TestResult{
		TestName: "Command on Stream",
		Success:  true,
		Details:  fmt.Sprintf("Received %s with history length %d", event.Type, event.HistoryLength),
	}
}

func testUndo(c *client) TestResult {
	log.Println("Check 5: undo restores the baseline")

	var undo engine.UndoResult
	status, err := c.postJSON("/api/architecture/undo", nil, &undo)
	if err != nil || status != http.StatusOK {
		return TestResult{TestName: "Undo", Error: errOrStatus(err, status), Details: "Undo request failed"}
	}
	if undo.HistoryLength != 0 {
		return TestResult{TestName: "Undo", Error: fmt.Errorf("history length %d after undo", undo.HistoryLength)}
	}

	status, err = c.postJSON("/api/architecture/undo", nil, nil)
	if err != nil || status != http.StatusNotFound {
		return TestResult{TestName: "Undo", Error: errOrStatus(err, status), Details: "Second undo should report nothing to undo"}
	}
	return TestResult{TestName: "Undo", Success: true, Details: "Undo restored the baseline and then reported nothing to undo"}
}

func testSuggestions(c *client) TestResult {
	log.Println("Check 6: suggestions")

	var resp gateway.SuggestionsResponse
	status, err := c.postJSON("/api/architecture/suggestions", map[string]interface{}{"document": map[string]interface{}{}}, &resp)
	if err != nil || status != http.StatusOK {
		return TestResult{TestName: "Suggestions", Error: errOrStatus(err, status), Details: "Suggestions request failed"}
	}
	if len(resp.Suggestions) == 0 && resp.Degraded {
		return TestResult{TestName: "Suggestions", Error: fmt.Errorf("degraded response without fallback suggestions")}
	}
	return TestResult{
		TestName: "Suggestions",
		Success:  true,
		Details:  fmt.Sprintf("%d suggestions, degraded=%v", len(resp.Suggestions), resp.Degraded),
	}
}

func (c *client) wsURL(withToken bool) string {
	u := strings.Replace(c.baseURL, "http://", "ws://", 1)
	u = strings.Replace(u, "https://", "wss://", 1) + "/api/architecture/ws"
	if withToken {
		u += "?" + url.Values{"token": {c.token}}.Encode()
	}
	return u
}

func (c *client) postJSON(path string, body, out interface{}) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(gateway.SessionHeader, c.scope)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func errOrStatus(err error, status int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected status code: %d", status)
}

// printTestResults logs a summary and reports whether every check passed
func printTestResults(results []TestResult) bool {
	log.Println("\n" + strings.Repeat("=", 80))
	log.Println("ARCHITECTURE CUSTOMIZER SMOKE TEST RESULTS")
	log.Println(strings.Repeat("=", 80))

	successCount := 0
	for _, result := range results {
		status := "FAILED"
		if result.Success {
			status = "PASSED"
			successCount++
		}

		log.Printf("%s %s", status, result.TestName)
		if result.Details != "" {
			log.Printf("   Details: %s", result.Details)
		}
		if result.Error != nil {
			log.Printf("   Error: %v", result.Error)
		}
	}

	log.Println(strings.Repeat("-", 80))
	log.Printf("SUMMARY: %d/%d checks passed", successCount, len(results))
	return successCount == len(results)
}

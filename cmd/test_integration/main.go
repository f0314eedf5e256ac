package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Smoke test against a running server: log in, open the classification
// task, save the current case and read the state back.
func main() {
	baseURL := getenv("SMOKE_BASE_URL", "http://localhost:8080")
	username := getenv("SMOKE_USERNAME", "reader1")
	password := os.Getenv("SMOKE_PASSWORD")

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test...")
	c := &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}

	fmt.Println("1. Logging in...")
	var login struct {
		Token string `json:"token"`
	}
	if !c.send("POST", "/api/login", map[string]string{"username": username, "password": password}, &login) {
		fail("Login")
	}
	c.token = login.Token
	fmt.Println("PASSED: Login")

	fmt.Println("2. Opening session...")
	var state struct {
		Position int      `json:"position"`
		Total    int      `json:"total"`
		Options  []string `json:"options"`
		Current  *struct {
			CaseID string `json:"case_id"`
		} `json:"current"`
	}
	if !c.send("POST", "/api/tasks/classification/session", nil, &state) {
		fail("Open session")
	}
	fmt.Printf("PASSED: Open session (%d cases, at %d)\n", state.Total, state.Position)
	if state.Current == nil {
		fmt.Println("Catalog is empty, nothing to save")
		return
	}

	fmt.Println("3. Saving current case...")
	save := map[string]string{
		"case_id": state.Current.CaseID,
		"value":   state.Options[0],
		"comment": "smoke test",
	}
	if !c.send("POST", "/api/tasks/classification/session/save", save, &state) {
		fail("Save")
	}
	fmt.Println("PASSED: Save")

	fmt.Println("4. Reading state...")
	if !c.send("GET", "/api/tasks/classification/session", nil, nil) {
		fail("State")
	}
	fmt.Println("PASSED: State")

	if !c.send("POST", "/api/logout", nil, nil) {
		fail("Logout")
	}
	fmt.Println("PASSED: Logout")
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *client) send(method, endpoint string, payload, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	fmt.Printf("Response: %s\n", string(respBody))

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(step string) {
	fmt.Printf("FAILED: %s\n", step)
	os.Exit(1)
}

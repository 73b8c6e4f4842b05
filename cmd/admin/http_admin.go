package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// execCmd sends one console line to a running server.
func execCmd(args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	token := fs.String("token", "", "admin token (or set RC_ADMIN_TOKEN)")
	_ = fs.Parse(args)

	line := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if line == "" {
		fmt.Fprintln(os.Stderr, "usage: admin exec [-url U] [-token T] COMMAND [ARGS...]")
		os.Exit(2)
	}
	tok := strings.TrimSpace(*token)
	if tok == "" {
		tok = strings.TrimSpace(os.Getenv("RC_ADMIN_TOKEN"))
	}

	body, _ := json.Marshal(map[string]string{"command": line})
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/v1/admin"
	req, _ := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out struct {
		OK     bool     `json:"ok"`
		Output []string `json:"output"`
		Error  string   `json:"error"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		fmt.Println(strings.TrimSpace(string(b)))
		os.Exit(1)
	}
	for _, l := range out.Output {
		fmt.Println(l)
	}
	if !out.OK {
		fmt.Fprintln(os.Stderr, "error:", out.Error)
		os.Exit(1)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type target struct {
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	Critical bool     `json:"critical"`
	Ignore   []string `json:"ignore"`
}

type config struct {
	Targets []target `json:"targets"`
}

type side struct {
	base  string
	token string
}

type comparison struct {
	Target       target
	LegacyStatus int
	GoStatus     int
	Diff         string
	Error        error
	GoTook       time.Duration
	LegacyTook   time.Duration
}

func (c comparison) matches() bool {
	return c.Error == nil && c.GoStatus == c.LegacyStatus && c.Diff == ""
}

func main() {
	var (
		goSide, legacySide side
		targetsPath        string
		timeout            time.Duration
	)

	flag.StringVar(&goSide.base, "go-base", "http://localhost:8080/api", "Go API base URL")
	flag.StringVar(&goSide.token, "go-token", os.Getenv("SHADOW_GO_TOKEN"), "Bearer token for the Go API")
	flag.StringVar(&legacySide.base, "legacy-base", "http://localhost:3000/api", "Legacy dashboard API base URL")
	flag.StringVar(&legacySide.token, "legacy-token", os.Getenv("SHADOW_LEGACY_TOKEN"), "Bearer token for the legacy API")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var results []comparison
	breaking, optional := 0, 0
	for _, t := range targets {
		res := compareTarget(client, goSide, legacySide, t)
		if !res.matches() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, goSide, legacySide side, tgt target) comparison {
	res := comparison{Target: tgt}

	goStatus, goBody, goTook, err := fetch(client, goSide, tgt)
	if err != nil {
		res.Error = fmt.Errorf("go request failed: %w", err)
		return res
	}
	legacyStatus, legacyBody, legacyTook, err := fetch(client, legacySide, tgt)
	if err != nil {
		res.Error = fmt.Errorf("legacy request failed: %w", err)
		return res
	}
	res.GoStatus, res.LegacyStatus = goStatus, legacyStatus
	res.GoTook, res.LegacyTook = goTook, legacyTook

	res.Diff, res.Error = diffBodies(unwrapEnvelope(goBody), legacyBody, tgt.Ignore)
	return res
}

func fetch(client *http.Client, s side, tgt target) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(s.base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, body, time.Since(start), nil
}

// unwrapEnvelope lifts "data" out of the Go response envelope so both sides
// expose the same payload shape.
func unwrapEnvelope(body []byte) []byte {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Data) == 0 {
		return body
	}
	return env.Data
}

func diffBodies(goBody, legacyBody []byte, ignore []string) (string, error) {
	if bytes.Equal(bytes.TrimSpace(goBody), bytes.TrimSpace(legacyBody)) {
		return "", nil
	}

	var g, l interface{}
	if err := json.Unmarshal(goBody, &g); err != nil {
		return "", fmt.Errorf("decode go body: %w", err)
	}
	if err := json.Unmarshal(legacyBody, &l); err != nil {
		return "", fmt.Errorf("decode legacy body: %w", err)
	}

	skip := make(map[string]struct{}, len(ignore))
	for _, key := range ignore {
		skip[key] = struct{}{}
	}
	return cmp.Diff(l, g,
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreMapEntries(func(k string, _ interface{}) bool {
			_, ok := skip[k]
			return ok
		}),
	), nil
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Error != nil:
			status = "ERROR"
		case !res.matches():
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.GoTook)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.LegacyTook)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		if res.Diff != "" {
			fmt.Printf("  Body diff (-legacy +go):\n%s\n", res.Diff)
		}
	}
}

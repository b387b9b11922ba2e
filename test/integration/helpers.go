//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	APIEndpoint string
	Username    string
	Password    string
	SkipSSL     bool
	Org         string
	Space       string
	App         string
	CfsyncPath  string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIEndpoint: os.Getenv("CF_API"),
		Username:    os.Getenv("CF_USERNAME"),
		Password:    os.Getenv("CF_PASSWORD"),
		SkipSSL:     os.Getenv("CF_SKIP_SSL_VALIDATION") == "true",
		Org:         os.Getenv("CF_TEST_ORG"),
		Space:       os.Getenv("CF_TEST_SPACE"),
		App:         os.Getenv("CF_TEST_APP"),
		CfsyncPath:  getCfsyncPath(),
		Verbose:     os.Getenv("CFSYNC_VERBOSE") == "true",
	}
}

// getCfsyncPath determines the path to the cfsync binary
func getCfsyncPath() string {
	if path := os.Getenv("CFSYNC_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../cfsync", "./cfsync", "../cfsync"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "cfsync"
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.APIEndpoint == "" || config.Username == "" || config.Password == "" {
		t.Skip("CF_API, CF_USERNAME or CF_PASSWORD not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.CfsyncPath); err != nil {
		t.Skipf("cfsync binary not found at %s, skipping integration test", config.CfsyncPath)
	}

	if _, err := exec.LookPath("cf"); err != nil {
		t.Skip("cf CLI not on PATH, skipping integration test")
	}
}

// SkipIfNoApp skips test unless a disposable application is configured
func (config *TestConfig) SkipIfNoApp(t *testing.T) {
	t.Helper()

	if config.Org == "" || config.Space == "" || config.App == "" {
		t.Skip("CF_TEST_ORG, CF_TEST_SPACE or CF_TEST_APP not set, skipping")
	}
}

// CommandRunner runs cfsync against an isolated config file and cf home
type CommandRunner struct {
	config     *TestConfig
	t          *testing.T
	configFile string
	cfHome     string
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	dir := t.TempDir()

	return &CommandRunner{
		config:     config,
		t:          t,
		configFile: filepath.Join(dir, "config.yml"),
		cfHome:     dir,
	}
}

// Run executes a cfsync command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a cfsync command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--config", runner.configFile}, args...)

	cmd := exec.Command(runner.config.CfsyncPath, args...)
	cmd.Env = append(os.Environ(), "CFSYNC_CF_HOME="+runner.cfHome)
	cmd.Stdin = strings.NewReader(input)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.CfsyncPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// Login logs the isolated cf session in and saves the platform as "it"
func (runner *CommandRunner) Login() error {
	args := []string{"login", "--api", runner.config.APIEndpoint, "--name", "it", "--save",
		"--username", runner.config.Username, "--password", runner.config.Password}
	if runner.config.SkipSSL {
		args = append(args, "--skip-ssl-validation")
	}

	_, stderr, err := runner.Run(args...)
	if err != nil {
		return fmt.Errorf("failed to log in: %s", stderr)
	}

	return nil
}

// WaitForCondition waits for a condition to be met with timeout
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	timeoutChan := time.After(timeout)

	for {
		select {
		case <-ticker.C:
			if condition() {
				return
			}
		case <-timeoutChan:
			t.Fatalf("Timeout waiting for condition: %s", message)
		}
	}
}

// DecodeJSON decodes command output into v
func DecodeJSON(t *testing.T, output string, v interface{}) {
	t.Helper()

	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), v), "output: %s", output)
}

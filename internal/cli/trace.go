package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cfsync/internal/constants"
)

const (
	requestMarker  = "REQUEST:"
	responseMarker = "RESPONSE:"
)

// Static errors for err113 compliance.
var (
	errNoResponse = errors.New("no response recorded")
	errNoBody     = errors.New("response has no JSON body")
)

// FindResponses scans verbose cf output for requests whose path starts with
// requestPath and returns the JSON body of the response that follows each one,
// in trace order.
func FindResponses(trace, requestPath string) ([][]byte, error) {
	lines := strings.Split(strings.ReplaceAll(trace, "\r\n", "\n"), "\n")

	var bodies [][]byte

	matched := 0

	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), requestMarker) {
			continue
		}

		path, next := requestLine(lines, i+1)
		if !strings.HasPrefix(path, requestPath) {
			continue
		}

		matched++

		body, end, err := responseBody(lines, next)
		if err != nil {
			return nil, fmt.Errorf("%w: response to %s: %w", constants.ErrCLIResponseParse, path, err)
		}

		bodies = append(bodies, body)
		i = end - 1
	}

	if matched == 0 {
		return nil, fmt.Errorf("%w: %w: %s", constants.ErrCLIResponseParse, constants.ErrCLIRequestNotFound, requestPath)
	}

	return bodies, nil
}

// requestLine reads "METHOD /path?query HTTP/1.1" and returns the path without
// its query along with the index after it.
func requestLine(lines []string, from int) (string, int) {
	for i := from; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}

		if len(fields) < 2 {
			return "", i + 1
		}

		path, _, _ := strings.Cut(fields[1], "?")

		return path, i + 1
	}

	return "", len(lines)
}

// responseBody locates the next RESPONSE block before any further REQUEST and
// decodes the first JSON value in it. It returns the index where scanning
// should resume.
func responseBody(lines []string, from int) ([]byte, int, error) {
	start := -1

	for i := from; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, requestMarker) {
			return nil, i, errNoResponse
		}

		if strings.HasPrefix(trimmed, responseMarker) {
			start = i + 1

			break
		}
	}

	if start < 0 {
		return nil, len(lines), errNoResponse
	}

	end := len(lines)

	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), requestMarker) {
			end = i

			break
		}
	}

	// Headers end at the first blank line.
	bodyStart := start
	for i := start; i < end; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			bodyStart = i + 1

			break
		}
	}

	block := strings.Join(lines[bodyStart:end], "\n")

	offset := strings.IndexAny(block, "{[")
	if offset < 0 {
		return nil, end, errNoBody
	}

	var raw json.RawMessage

	decoder := json.NewDecoder(bytes.NewReader([]byte(block[offset:])))

	err := decoder.Decode(&raw)
	if err != nil {
		return nil, end, fmt.Errorf("decoding body: %w", err)
	}

	return raw, end, nil
}

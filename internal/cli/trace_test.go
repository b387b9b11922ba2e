package cli_test

import (
	"encoding/json"
	"testing"

	"github.com/fivetwenty-io/cfsync/internal/cli"
	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketplaceTrace = `Getting all service offerings from marketplace as admin...

REQUEST: [2025-03-01T10:00:00Z]
GET /v3/service_brokers?page=1 HTTP/1.1
Host: api.example.org
Accept: application/json
Authorization: [PRIVATE DATA HIDDEN]

RESPONSE: [2025-03-01T10:00:00Z]
HTTP/1.1 200 OK
Content-Type: application/json

{"pagination":{"next":null},"resources":[{"guid":"broker-1","name":"db-broker"}]}

REQUEST: [2025-03-01T10:00:01Z]
GET /v3/service_offerings?fields[service_broker]=name&page=1&per_page=5000 HTTP/1.1
Host: api.example.org
Accept: application/json
Authorization: [PRIVATE DATA HIDDEN]

RESPONSE: [2025-03-01T10:00:01Z]
HTTP/1.1 200 OK
Content-Type: application/json
X-Vcap-Request-Id: 6e1b1f0c

{
  "pagination": {"total_results": 1, "next": null},
  "resources": [
    {
      "guid": "offering-1",
      "name": "postgres",
      "description": "Managed PostgreSQL",
      "available": true,
      "relationships": {"service_broker": {"data": {"guid": "broker-1"}}}
    }
  ]
}

offering   plans    description          broker
postgres   small    Managed PostgreSQL   db-broker
`

const unauthorizedTrace = `REQUEST: [2025-03-01T10:00:00Z]
GET /v3/service_offerings?page=1 HTTP/1.1

RESPONSE: [2025-03-01T10:00:00Z]
HTTP/1.1 401 Unauthorized
Content-Type: application/json

FAILED
You are not authorized to perform the requested action
`

func TestFindResponses(t *testing.T) {
	t.Parallel()

	bodies, err := cli.FindResponses(marketplaceTrace, "/v3/service_offerings")
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	var page struct {
		Resources []struct {
			GUID string `json:"guid"`
		} `json:"resources"`
	}

	require.NoError(t, json.Unmarshal(bodies[0], &page))
	assert.Equal(t, "offering-1", page.Resources[0].GUID)
}

func TestFindResponses_MultiplePages(t *testing.T) {
	t.Parallel()

	trace := "REQUEST: [t]\nGET /v3/stacks?page=1 HTTP/1.1\n\nRESPONSE: [t]\nHTTP/1.1 200 OK\n\n{\"page\":1}\n" +
		"REQUEST: [t]\r\nGET /v3/stacks?page=2 HTTP/1.1\r\n\r\nRESPONSE: [t]\r\nHTTP/1.1 200 OK\r\n\r\n{\"page\":2}\r\n"

	bodies, err := cli.FindResponses(trace, "/v3/stacks")
	require.NoError(t, err)
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"page":1}`, string(bodies[0]))
	assert.JSONEq(t, `{"page":2}`, string(bodies[1]))
}

func TestFindResponses_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trace string
		path  string
		match error
	}{
		{
			name:  "request not found",
			trace: marketplaceTrace,
			path:  "/v3/routes",
			match: constants.ErrCLIRequestNotFound,
		},
		{
			name:  "response missing",
			trace: "REQUEST: [t]\nGET /v3/apps HTTP/1.1\n\n",
			path:  "/v3/apps",
			match: constants.ErrCLIResponseParse,
		},
		{
			name:  "body missing",
			trace: unauthorizedTrace,
			path:  "/v3/service_offerings",
			match: constants.ErrCLIResponseParse,
		},
		{
			name:  "truncated body",
			trace: "REQUEST: [t]\nGET /v3/apps HTTP/1.1\n\nRESPONSE: [t]\nHTTP/1.1 200 OK\n\n{\"resources\": [\n",
			path:  "/v3/apps",
			match: constants.ErrCLIResponseParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := cli.FindResponses(tt.trace, tt.path)
			require.ErrorIs(t, err, tt.match)
			require.ErrorIs(t, err, constants.ErrCLIResponseParse)
		})
	}
}

// Package capi provides the public types and contracts shared by the cfsync
// synchronization layer.
//
// # Overview
//
// The capi package defines the Cloud Foundry resource snapshots that make up
// the explored hierarchy (PlatformInstance, Organization, Space, App) plus the
// auxiliary platform resources (Buildpack, Stack, ServiceOffering). Snapshots
// are plain values rebuilt on every fetch; parents are linked through the
// Platform, Organization and Space pointers that the client fills in when it
// lists a scoped collection.
//
// # Results
//
// Every operation of the resilient resource client returns a Result:
//
//	res := cli.ListOrganizations(ctx, platform)
//	if !res.Succeeded {
//	  if res.FailureKind == capi.FailureInvalidRefreshToken {
//	    // force re-authentication
//	  }
//	  log.Println(res.Explanation)
//	  return
//	}
//	for _, org := range res.Content { ... }
//
// A Result carries either Content (Succeeded is true) or an Explanation with a
// FailureKind, never both. Result.AsError converts a failure into a
// *FailureError so it can travel through error-returning code paths and be
// recovered with errors.As.
//
// # Errors
//
// Cloud Controller error envelopes are decoded into ResponseError/APIError.
// Helpers IsNotFound, IsUnauthorized and IsForbidden inspect wrapped errors.
//
// # Logging
//
// Logger is the minimal structured logging interface used across the module.
// The internal/logging package provides a log/slog backed implementation.
package capi

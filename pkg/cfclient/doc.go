// Package cfclient assembles the pieces needed to talk to Cloud Foundry: a
// cf command-line session that mints tokens, a token cache shared by every
// call, and the resilient resource client that retries once with a fresh
// token when the Cloud Controller rejects a stale one.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/cfsync/pkg/capi"
//	  "github.com/fivetwenty-io/cfsync/pkg/cfclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cf, err := cfclient.New(&capi.Config{CFBinary: "cf", RetryBudget: 1})
//	  if err != nil { log.Fatal(err) }
//
//	  platform := &capi.PlatformInstance{Name: "prod", APIAddress: "https://api.example.com"}
//
//	  res := cf.Resources().ListOrganizations(ctx, platform)
//	  if !res.Succeeded {
//	    if res.FailureKind == capi.FailureInvalidRefreshToken {
//	      // run cf.Login again
//	    }
//	    log.Fatal(res.Explanation)
//	  }
//
//	  for _, org := range res.Content {
//	    log.Println(org.Name)
//	  }
//	}
//
// # Authentication
//
// The cf session must be logged in. Login runs "cf api" and "cf auth" with the
// credentials passed through the environment, then primes the token cache.
// Probe checks that an address serves the Cloud Controller v3 API before any
// credentials are sent to it.
//
// # TLS
//
// Config.SkipTLSVerify disables certificate validation for every platform;
// PlatformInstance.SkipSSLValidation does it for one.
package cfclient

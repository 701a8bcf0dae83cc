// Package teatime is a framework for building REST API clients. It factors
// out the repeated mechanics of talking to JSON-over-HTTP APIs: issuing
// requests through a pluggable transport, injecting authentication per
// request, resolving relative endpoints against a base URI, decoding JSON
// bodies, and transparently walking paginated collections via the Link
// response header.
//
// # Overview
//
// The package defines the capability contracts (Transport, APIClient,
// JSONClient), the request engine (Client), the credentials and token model,
// the request target resolver, and the Link header parser. Vendor bindings
// such as pkg/gitlab, pkg/vault, and pkg/sensu compose these pieces into
// ready-to-use clients; most consumers should import a binding and only drop
// down to this package to build a client for a new API.
//
// Using a binding
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/teatime-io/teatime/pkg/gitlab"
//	  "github.com/teatime-io/teatime/pkg/teatime"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := gitlab.New("https://gitlab.example.com/api/v4")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  resp, err := cli.Get(ctx, teatime.Rel("projects"))
//	  if err != nil { log.Fatal(err) }
//	  _ = resp
//	}
//
// New bindings call New with an endpoint and a Transport implementation;
// each binding ships a default transport and accepts a replacement through
// its options.
//
// # Targets and resolution
//
// A request addresses a Target: either Rel("path/under/base") or an absolute
// URL from Abs. Relative targets are joined onto the client's base URI;
// absolute targets bypass the base entirely, which is what lets pagination
// follow fully-qualified continuation URLs across hosts.
//
// # Credentials and login
//
// Login consumes one Credentials value: NoAuth, APIKey, UserPass, or
// UserPassTwoFactor. The resulting session token carries a TokenKind so each
// binding can encode structurally identical secrets into its own header,
// for example Authorization: Bearer versus PRIVATE-TOKEN.
//
// # Pagination
//
// RequestPaged walks a collection page by page, strictly in server order, and
// returns one decoded payload per page. PageIterator and StreamPages offer
// incremental traversal, and FetchAllPages drives any Paginator, so bindings
// with vendor-specific continuation rules plug in transparently.
//
// # Errors
//
// Failures are typed values: ConfigurationError, TransportError, ParseError,
// AuthError, DecodeError, StatusError, and PaginationError, with helpers such
// as IsAuthError and IsNotFound for branching. Raw response bodies travel
// with decode failures because a malformed body is often the interesting
// part. "No more pages" is a terminal state, never an error.
//
// # Interceptors
//
// Request and response interceptors provide logging, rate limiting, header
// injection, Prometheus metrics, and circuit breaking without touching the
// core flow. Bindings compose a sensible default chain; applications with
// advanced needs can use the primitives directly.
package teatime

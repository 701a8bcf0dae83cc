package teatime

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is a request destination: either a path relative to a client's base
// URI or a fully-qualified absolute URL. Absolute targets bypass base joining
// entirely, which lets pagination follow continuation URLs that already carry
// scheme and host.
type Target struct {
	path string
	url  *url.URL
}

// Rel returns a Target for a path under the client's base URI.
func Rel(path string) Target {
	return Target{path: path}
}

// Abs parses raw as an absolute URL and returns it as a Target. The URL must
// carry a scheme and host.
func Abs(raw string) (Target, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return Target{}, &ConfigurationError{Reason: "malformed URL " + raw + ": " + err.Error()}
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return Target{}, &ConfigurationError{Reason: "URL " + raw + " is not absolute"}
	}

	return Target{url: parsed}, nil
}

// MustAbs is Abs but panics on error, for statically known URLs.
func MustAbs(raw string) Target {
	target, err := Abs(raw)
	if err != nil {
		panic(err)
	}

	return target
}

// FromURL wraps an already-parsed absolute URL as a Target.
func FromURL(u *url.URL) Target {
	return Target{url: u}
}

// IsAbsolute reports whether the target is a fully-qualified URL.
func (t Target) IsAbsolute() bool {
	return t.url != nil
}

// URL returns the parsed URL for an absolute target, or nil for a relative one.
func (t Target) URL() *url.URL {
	return t.url
}

// String returns the target as it was supplied.
func (t Target) String() string {
	if t.url != nil {
		return t.url.String()
	}

	return t.path
}

// Join composes an absolute base target with a relative one. Composing two
// absolute targets or using a relative target as a base is a programming
// error and fails fast instead of producing a wrong URI.
func Join(base, target Target) (Target, error) {
	if !base.IsAbsolute() {
		return Target{}, fmt.Errorf("join base %q: %w", base.String(), ErrRelativeBase)
	}

	if target.IsAbsolute() {
		return Target{}, fmt.Errorf("join target %q: %w", target.String(), ErrAbsoluteJoin)
	}

	resolved, err := Resolve(base.url, target)
	if err != nil {
		return Target{}, err
	}

	return Target{url: resolved}, nil
}

// Resolve turns a target into the absolute URL to dispatch.
//
// Absolute targets are returned unchanged and the base is never consulted,
// even when the hosts differ. Relative targets are joined onto the base: at
// most one leading path separator is stripped from the relative path, the
// base is normalized to end with exactly one separator, and the two are
// concatenated, so base "https://h/api/" and target "/v1/items" resolve to
// "https://h/api/v1/items".
func Resolve(base *url.URL, target Target) (*url.URL, error) {
	if target.IsAbsolute() {
		return target.url, nil
	}

	if base == nil || !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("resolving %q: %w", target.path, ErrRelativeBase)
	}

	path := strings.TrimPrefix(target.path, "/")
	if path == "" {
		return nil, &InvalidTargetError{Target: target.path}
	}

	resolved, err := url.Parse(strings.TrimRight(base.String(), "/") + "/" + path)
	if err != nil {
		return nil, &InvalidTargetError{Target: target.path}
	}

	return resolved, nil
}

// Origin returns the scheme://host[:port] portion of a URL with any path,
// query, and fragment dropped. Login flows post to fixed sub-paths of the
// origin rather than of the full base URI.
func Origin(u *url.URL) *url.URL {
	return &url.URL{Scheme: u.Scheme, Host: u.Host}
}

// Package restreq models one HTTP request travelling through the gateway:
// the negotiated format flags, conditional headers, and the error
// taxonomy surfaced at the HTTP boundary.
package restreq

import (
	"net/url"
	"strings"
	"time"

	fcrestconf "github.com/freeconf/restconf"
)

// Flags is the request's format flag-set, computed once from the method,
// headers, and URL prefix and consulted by every downstream component.
type Flags struct {
	Root        bool // include the single top-level key instead of chopping it
	Multi       bool // wrap the result in a top-level JSON array
	Arrays      bool // render lists as JSON arrays instead of keyed objects
	Types       bool // render leaves as typed JSON values
	Namespace   bool // add "model:" prefixes to non-native top-level keys
	PutReplace  bool // PUT replaces the full addressed subtree
	ConfigOnly  bool // content=config was requested
	RESTConf    bool // request is framed under /restconf
	Simplified  bool // client asked for freeconf/restconf's simplified compliance mode
}

// Request is created on accept and discarded on response completion.
type Request struct {
	Method      string
	Path        string // document-root-relative, percent-decoded
	RawQuery    string
	Body        []byte
	ContentType MediaType
	AcceptType  MediaType
	Flags       Flags

	IfMatch            string
	IfNoneMatch        string
	IfModifiedSince    *time.Time
	IfUnmodifiedSince  *time.Time

	DocumentRoot string
	RequestURI   string
	ServerName   string
	ServerPort   string
	RemoteAddr   string
	RemoteUser   string
}

// Env is the subset of the FastCGI/CGI environment the gateway consumes.
type Env struct {
	RequestMethod        string
	RequestURI           string
	DocumentRoot         string
	ContentType          string
	Accept               string
	IfMatch              string
	IfNoneMatch          string
	IfModifiedSince      string
	IfUnmodifiedSince    string
	ServerName           string
	ServerPort           string
	RemoteAddr           string
	RemoteUser           string
	XJSONRoot            string
	XJSONMulti           string
	XJSONArray           string
	XJSONTypes           string
	XJSONNamespace       string
	Body                 []byte
}

// NewRequest builds a Request from env, resolving content/accept
// negotiation and the format flag-set. restconfPrefix/apiPrefix are the
// configured mount points; whichever the URI falls under determines
// RESTConf framing and default flag values (RESTCONF defaults arrays,
// types, and namespace to true; the permissive /api surface defaults them
// to false unless overridden by X-JSON-* headers).
func NewRequest(env Env, apiPrefix, restconfPrefix string) (*Request, error) {
	ct, err := ParseMediaType(firstNonEmpty(env.ContentType, "application/json"))
	if err != nil {
		return nil, NewError(ErrUnsupportedMediaType, err.Error())
	}
	at, err := ParseMediaType(env.Accept)
	if err != nil {
		return nil, NewError(ErrUnsupportedMediaType, err.Error())
	}

	uri := env.RequestURI
	rawQuery := ""
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		rawQuery = uri[i+1:]
		uri = uri[:i]
	}

	restconf := false
	body := uri
	if restconfPrefix != "" && strings.HasPrefix(uri, restconfPrefix) {
		restconf = true
		body = strings.TrimPrefix(uri, restconfPrefix)
	} else if apiPrefix != "" && strings.HasPrefix(uri, apiPrefix) {
		body = strings.TrimPrefix(uri, apiPrefix)
	}
	if dec, err := url.PathUnescape(body); err == nil {
		body = dec
	}

	simplified := hasQueryFlag(rawQuery, fcrestconf.SimplifiedComplianceParam)

	flags := Flags{RESTConf: restconf, Simplified: simplified}
	if restconf {
		flags.Arrays = true
		flags.Types = true
		flags.Namespace = true
	} else {
		flags.Arrays = truthy(env.XJSONArray)
		flags.Types = truthy(env.XJSONTypes)
		flags.Namespace = truthy(env.XJSONNamespace)
		flags.Root = !falsy(env.XJSONRoot)
		flags.Multi = truthy(env.XJSONMulti)
	}
	if at.IsStreaming() {
		at = MediaJSON
	}
	if simplified && at == MediaYangDataJSON {
		at = MediaJSON
	}

	req := &Request{
		Method:       strings.ToUpper(env.RequestMethod),
		Path:         body,
		RawQuery:     rawQuery,
		Body:         env.Body,
		ContentType:  ct,
		AcceptType:   at,
		Flags:        flags,
		IfMatch:      env.IfMatch,
		IfNoneMatch:  env.IfNoneMatch,
		DocumentRoot: env.DocumentRoot,
		RequestURI:   env.RequestURI,
		ServerName:   env.ServerName,
		ServerPort:   env.ServerPort,
		RemoteAddr:   env.RemoteAddr,
		RemoteUser:   env.RemoteUser,
	}
	if t, ok := parseHTTPDate(env.IfModifiedSince); ok {
		req.IfModifiedSince = &t
	}
	if t, ok := parseHTTPDate(env.IfUnmodifiedSince); ok {
		req.IfUnmodifiedSince = &t
	}
	return req, nil
}

// hasQueryFlag reports whether rawQuery carries name as a bare flag
// parameter (with or without a value), the way freeconf/restconf's client
// adds its simplified-compliance marker.
func hasQueryFlag(rawQuery, name string) bool {
	if rawQuery == "" || name == "" {
		return false
	}
	vals, err := url.ParseQuery(rawQuery)
	if err != nil {
		return false
	}
	_, ok := vals[name]
	return ok
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// falsy reports whether v explicitly turns a default-on flag off, matching
// the original CGI's X-JSON-Root, which is set unconditionally and cleared
// only by an explicit "off" (FLAGS_JSON_FORMAT_ROOT, fcgi.c).
func falsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "off":
		return true
	default:
		return false
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseHTTPDate(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC1123, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Package request builds outbound gateway requests: method, path, query, body
// and headers, with the session credential attached. It never looks at responses.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"teamhub/internal/gateway/apierror"
)

// CredentialSource yields the current credential, if any. session.Reader
// satisfies it.
type CredentialSource interface {
	Credential(ctx context.Context) (string, bool)
}

// Params are query parameters. A nil value, or a nil pointer, means "undefined"
// and the key is left out of the query string entirely.
type Params map[string]any

// Options configures one request. The zero value is a bare GET.
type Options struct {
	Method  string
	Body    any
	Query   Params
	Headers map[string]string
}

// Outbound is a fully built request. It is created fresh for every call and
// treated as read-only once built.
type Outbound struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Builder assembles Outbound requests.
type Builder struct {
	creds CredentialSource
}

// NewBuilder constructs a builder reading credentials from creds. A nil source
// builds anonymous requests.
func NewBuilder(creds CredentialSource) *Builder {
	return &Builder{creds: creds}
}

// Build assembles the request for path. Failures are *apierror.Error values.
func (b *Builder) Build(ctx context.Context, path string, opts Options) (*Outbound, error) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	parsed, err := url.Parse(path)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindUnknown, apierror.CodeInvalidRequest,
			fmt.Sprintf("invalid request path %q", path), err)
	}

	query := parsed.Query()
	for key, value := range opts.Query {
		s, defined, err := formatScalar(value)
		if err != nil {
			return nil, apierror.Wrap(apierror.KindUnknown, apierror.CodeInvalidRequest,
				fmt.Sprintf("query parameter %q: %v", key, err), err)
		}
		if defined {
			query.Set(key, s)
		}
	}

	header := make(http.Header, len(opts.Headers)+2)
	for k, v := range opts.Headers {
		header.Set(k, v)
	}

	var body []byte
	if opts.Body != nil {
		body, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, apierror.Wrap(apierror.KindUnknown, apierror.CodeInvalidRequestBody,
				"request body could not be serialized", err)
		}
		header.Set("Content-Type", "application/json")
	}

	if b.creds != nil {
		if token, ok := b.creds.Credential(ctx); ok {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	return &Outbound{
		Method: method,
		Path:   parsed.EscapedPath(),
		Query:  query,
		Body:   body,
		Header: header,
	}, nil
}

// URL joins base with the request path and encoded query.
func (o *Outbound) URL(base string) string {
	u := strings.TrimSuffix(base, "/") + o.Path
	if q := o.Query.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// HTTPRequest materializes the request against base, bound to ctx so the call
// is abandoned when the caller gives up.
func (o *Outbound) HTTPRequest(ctx context.Context, base string) (*http.Request, error) {
	var body io.Reader
	if o.Body != nil {
		body = bytes.NewReader(o.Body)
	}

	req, err := http.NewRequestWithContext(ctx, o.Method, o.URL(base), body)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindUnknown, apierror.CodeInvalidRequest, "invalid request", err)
	}
	req.Header = o.Header.Clone()
	return req, nil
}

// formatScalar renders a scalar query value in its plain text form. defined is
// false for nil and nil pointers.
func formatScalar(v any) (s string, defined bool, err error) {
	if v == nil {
		return "", false, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false, nil
		}
		rv = rv.Elem()
	}
	if st, ok := rv.Interface().(fmt.Stringer); ok {
		return st.String(), true, nil
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true, nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true, nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true, nil
	default:
		return "", false, fmt.Errorf("unsupported type %s", rv.Type())
	}
}

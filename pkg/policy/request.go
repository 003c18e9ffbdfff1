package policy

import "net/http"

// inspectedHeaders are copied from the HTTP request for rule evaluation
var inspectedHeaders = []string{
	"User-Agent",
	"Accept",
	"Accept-Language",
	"Referer",
	"X-Forwarded-For",
}

// Request is the transport-neutral view of an inbound request
type Request struct {
	IP        string
	Method    string
	Path      string
	Query     string
	UserAgent string
	Headers   http.Header
}

// RequestFromHTTP builds a Request. Path and query are kept in their escaped
// form; the shield decodes them itself.
func RequestFromHTTP(r *http.Request, ip string) Request {
	headers := make(http.Header, len(inspectedHeaders))
	for _, name := range inspectedHeaders {
		if values := r.Header.Values(name); len(values) > 0 {
			headers[name] = append([]string(nil), values...)
		}
	}

	return Request{
		IP:        ip,
		Method:    r.Method,
		Path:      r.URL.EscapedPath(),
		Query:     r.URL.RawQuery,
		UserAgent: r.UserAgent(),
		Headers:   headers,
	}
}

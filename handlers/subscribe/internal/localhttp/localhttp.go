// Package localhttp serves an API Gateway HTTP API Lambda handler over net/http for local development.
package localhttp

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// HandlerFunc is the signature of an API Gateway HTTP API (payload 2.0) Lambda handler.
type HandlerFunc func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// Handler adapts fn to an http.Handler. Handler errors are rendered the way API Gateway renders
// a failed invocation.
func Handler(fn HandlerFunc, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := Request(r)
		if err != nil {
			log.Error("could not read request", zap.Error(err))
			http.Error(w, "could not read request", http.StatusBadRequest)
			return
		}

		res, err := fn(r.Context(), req)
		if err != nil {
			log.Error("invocation failed", zap.Error(err))
			w.Header().Set("content-type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"message":"Internal Server Error"}`)
			return
		}

		if err := Write(w, res); err != nil {
			log.Error("could not write response", zap.Error(err))
		}
	})
}

// Request converts r into the event API Gateway would deliver for it.
func Request(r *http.Request) (events.APIGatewayV2HTTPRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayV2HTTPRequest{}, err
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ",")
	}

	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		query[k] = strings.Join(v, ",")
	}

	req := events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              "$default",
		RawPath:               r.URL.Path,
		RawQueryString:        r.URL.RawQuery,
		Headers:               headers,
		QueryStringParameters: query,
	}
	req.RequestContext.HTTP.Method = r.Method
	req.RequestContext.HTTP.Path = r.URL.Path
	req.RequestContext.HTTP.Protocol = r.Proto
	req.RequestContext.HTTP.SourceIP = r.RemoteAddr
	req.RequestContext.HTTP.UserAgent = r.UserAgent()

	if utf8.Valid(body) {
		req.Body = string(body)
	} else {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req, nil
}

// Write copies res to w.
func Write(w http.ResponseWriter, res events.APIGatewayV2HTTPResponse) error {
	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range res.MultiValueHeaders {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	body := []byte(res.Body)
	if res.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return err
		}
		body = b
	}

	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}

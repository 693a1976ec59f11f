// Package handler provides the Lambda function implementation.
package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"newsletter/handlers/subscribe/internal/api"
	"newsletter/handlers/subscribe/internal/config"
	"newsletter/types"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// AllowedOrigin is the signup form's origin.
const AllowedOrigin = "https://oakleyspirits.webflow.io"

// Response messages.
const (
	MessageMethodNotAllowed = "Method not allowed"
	MessageInvalidEmail     = "Invalid Email"
	MessageProviderError    = "Mailchimp error"
	MessageSuccess          = "Success"
	MessageServerError      = "Internal Server Error"
)

// CredentialsAPI provides the Mailchimp credentials current at call time.
type CredentialsAPI interface {
	Credentials(ctx context.Context) (config.Credentials, error)
}

// AddListMemberAPI allows adding a member to a Mailchimp audience.
type AddListMemberAPI interface {
	AddListMember(ctx context.Context, creds config.Credentials, member types.ListMember) (api.MemberResult, error)
}

// Handler provides the state and implementation of the subscribe Lambda function.
type Handler struct {
	creds   CredentialsAPI
	members AddListMemberAPI
	log     *zap.Logger
}

// New creates an instance of Handler that subscribes emails through members.
func New(creds CredentialsAPI, members AddListMemberAPI, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{creds, members, log}
}

// SubscribeResponse is the JSON body of every non-preflight response.
type SubscribeResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Subscribe validates the signup form body and adds the email to the Mailchimp audience.
// A non-nil error is only returned when the function is misconfigured.
func (h *Handler) Subscribe(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	switch strings.ToUpper(req.RequestContext.HTTP.Method) {
	case http.MethodOptions:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Headers: corsHeaders()}, nil
	case http.MethodPost:
	default:
		return response(http.StatusMethodNotAllowed, SubscribeResponse{Message: MessageMethodNotAllowed})
	}

	sub, ok := parseSubscription(req)
	if !ok {
		return response(http.StatusBadRequest, SubscribeResponse{Message: MessageInvalidEmail})
	}

	creds, err := h.creds.Credentials(ctx)
	if err != nil {
		h.log.Error("configuration error", zap.Error(err))
		return events.APIGatewayV2HTTPResponse{}, fmt.Errorf("could not load credentials: %w", err)
	}

	res, err := h.members.AddListMember(ctx, creds, types.NewListMember(sub))
	if err != nil {
		h.log.Error("server error", zap.Error(err))
		return response(http.StatusInternalServerError, SubscribeResponse{Message: MessageServerError})
	}

	if res.StatusCode >= 400 {
		h.log.Warn("mailchimp rejected member", zap.Int("status", res.StatusCode), zap.Bool("collector", sub.Collector))
		return response(res.StatusCode, SubscribeResponse{Message: MessageProviderError, Error: res.Body})
	}

	h.log.Info("subscribed member", zap.Bool("collector", sub.Collector))
	return response(http.StatusOK, SubscribeResponse{Message: MessageSuccess, Data: res.Body})
}

// parseSubscription reports false when the body has no non-empty string email.
func parseSubscription(req events.APIGatewayV2HTTPRequest) (types.Subscription, bool) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return types.Subscription{}, false
		}
		body = b
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return types.Subscription{}, false
	}

	var email string
	raw, ok := fields["email"]
	if !ok || json.Unmarshal(raw, &email) != nil || email == "" {
		return types.Subscription{}, false
	}

	return types.Subscription{Email: email, Collector: truthy(fields["collector"])}, true
}

// truthy applies JavaScript truthiness to a JSON value. Absent values are false.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  AllowedOrigin,
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
}

func response(status int, body SubscribeResponse) (events.APIGatewayV2HTTPResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		err = fmt.Errorf("error marshalling response body: %w", err)
	}
	headers := corsHeaders()
	headers["content-type"] = "application/json"
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(b),
	}, err
}

// Package api provides methods to make requests to the Mailchimp Marketing API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"newsletter/handlers/subscribe/internal/config"
	"newsletter/types"
)

// MailchimpAPI provides methods to add members to a Mailchimp audience.
type MailchimpAPI struct {
	client *http.Client

	// A format string that takes 2 string arguments for the server prefix and audience ID.
	endpoint string
}

// NewMailchimpAPI initializes a new instance of MailchimpAPI. A nil client uses http.DefaultClient.
func NewMailchimpAPI(client *http.Client, endpoint string) *MailchimpAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &MailchimpAPI{client, endpoint}
}

// MemberResult is the raw outcome of an add-member call as reported by Mailchimp.
type MemberResult struct {
	StatusCode int

	// Body is the response body, guaranteed to be valid JSON.
	Body json.RawMessage
}

// AddListMember adds member to the audience in creds. Error statuses from Mailchimp are
// returned in MemberResult; err is only non-nil when no JSON response could be obtained.
func (api *MailchimpAPI) AddListMember(ctx context.Context, creds config.Credentials, member types.ListMember) (MemberResult, error) {
	b, err := json.Marshal(member)
	if err != nil {
		return MemberResult{}, fmt.Errorf("could not marshal list member: %w", err)
	}

	url := fmt.Sprintf(api.endpoint, creds.ServerPrefix, creds.AudienceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return MemberResult{}, fmt.Errorf("could not create Mailchimp request: %w", err)
	}
	req.Header.Set("Authorization", "apikey "+creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := api.client.Do(req)
	if err != nil {
		return MemberResult{}, fmt.Errorf("could not POST Mailchimp API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MemberResult{}, fmt.Errorf("could not read Mailchimp response: %w", err)
	}

	var data json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return MemberResult{}, fmt.Errorf("could not unmarshal Mailchimp response (status %d): %w", resp.StatusCode, err)
	}

	return MemberResult{StatusCode: resp.StatusCode, Body: data}, nil
}

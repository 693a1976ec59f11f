package api

// MembersEndpoint is the Marketing API v3 list members endpoint. It takes the server prefix and audience ID.
const MembersEndpoint = "https://%s.api.mailchimp.com/3.0/lists/%s/members"

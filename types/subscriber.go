// Package types provides common data types for subscribing contacts to a mailing list.
package types

const (
	// StatusSubscribed is the list member status for a contact who has opted in.
	StatusSubscribed = "subscribed"

	// TagNewsletter is attached to every new list member.
	TagNewsletter = "Newsletter"

	// TagCollectorTier is attached when the subscriber asked for collector releases.
	TagCollectorTier = "Collector Tier"
)

// Subscription models a validated subscription request from the signup form.
type Subscription struct {
	Email     string
	Collector bool
}

// Tags returns the tag set for the subscription. TagNewsletter is always first.
func (s Subscription) Tags() []string {
	tags := []string{TagNewsletter}
	if s.Collector {
		tags = append(tags, TagCollectorTier)
	}
	return tags
}

// ListMember models the body sent to the mailing-list provider to add a new member.
type ListMember struct {
	EmailAddress string   `json:"email_address"`
	Status       string   `json:"status"`
	Tags         []string `json:"tags"`
}

// NewListMember creates the subscribed list member for s.
func NewListMember(s Subscription) ListMember {
	return ListMember{
		EmailAddress: s.Email,
		Status:       StatusSubscribed,
		Tags:         s.Tags(),
	}
}

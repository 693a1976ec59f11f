// Package config resolves the Mailchimp credentials the handler needs on every call.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Environment variable names.
const (
	EnvAPIKey       = "MAILCHIMP_API_KEY"
	EnvAudienceID   = "MAILCHIMP_AUDIENCE_ID"
	EnvServerPrefix = "MAILCHIMP_SERVER_PREFIX"

	// EnvAPIKeyParam names an SSM parameter holding the API key. Only used when EnvAPIKey is empty.
	EnvAPIKeyParam = "MAILCHIMP_API_KEY_SSM_PARAM"
)

// ErrMissingCredentials is returned when one or more credential values are not configured.
var ErrMissingCredentials = errors.New("missing Mailchimp environment variables")

// Credentials are the values required to call the Mailchimp Marketing API.
type Credentials struct {
	APIKey       string
	AudienceID   string
	ServerPrefix string
}

// SSMGetParameterAPI allows reading a single SSM parameter.
type SSMGetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Loader reads Credentials from the environment each time they are requested.
type Loader struct {
	getenv func(string) string
	ssm    SSMGetParameterAPI

	mu          sync.Mutex
	cachedParam string
	cachedKey   string
}

// NewLoader creates a Loader. getenv defaults to os.Getenv; ssm may be nil when no
// parameter store lookup is configured.
func NewLoader(getenv func(string) string, ssm SSMGetParameterAPI) *Loader {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Loader{getenv: getenv, ssm: ssm}
}

// Credentials returns the current credentials or an error wrapping ErrMissingCredentials.
func (l *Loader) Credentials(ctx context.Context) (Credentials, error) {
	apiKey, err := l.apiKey(ctx)
	if err != nil {
		return Credentials{}, err
	}

	c := Credentials{
		APIKey:       apiKey,
		AudienceID:   l.getenv(EnvAudienceID),
		ServerPrefix: l.getenv(EnvServerPrefix),
	}

	var missing []string
	if c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if c.AudienceID == "" {
		missing = append(missing, EnvAudienceID)
	}
	if c.ServerPrefix == "" {
		missing = append(missing, EnvServerPrefix)
	}
	if len(missing) != 0 {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	return c, nil
}

func (l *Loader) apiKey(ctx context.Context) (string, error) {
	if key := l.getenv(EnvAPIKey); key != "" {
		return key, nil
	}

	name := l.getenv(EnvAPIKeyParam)
	if name == "" {
		return "", nil
	}
	if l.ssm == nil {
		return "", fmt.Errorf("%w: %s is set but no SSM client is configured", ErrMissingCredentials, EnvAPIKeyParam)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cachedParam == name {
		return l.cachedKey, nil
	}

	out, err := l.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: could not get SSM parameter %s: %v", ErrMissingCredentials, name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%w: SSM parameter %s has no value", ErrMissingCredentials, name)
	}

	l.cachedParam = name
	l.cachedKey = *out.Parameter.Value
	return l.cachedKey, nil
}

// LoadFromEnv creates a Loader backed by os.Getenv. An SSM client is only created when
// EnvAPIKeyParam is set.
func LoadFromEnv(ctx context.Context) (*Loader, error) {
	if os.Getenv(EnvAPIKeyParam) == "" {
		return NewLoader(os.Getenv, nil), nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load AWS config: %w", err)
	}
	return NewLoader(os.Getenv, ssm.NewFromConfig(cfg)), nil
}

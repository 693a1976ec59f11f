package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/google/go-cmp/cmp"
)

type mockSSMGetParameterAPI struct {
	*testing.T
	name  string
	value *string
	err   error
	calls int
}

func (m *mockSSMGetParameterAPI) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.calls++
	if params == nil || params.Name == nil {
		m.Fatal("GetParameter: got nil params or name")
	}
	if *params.Name != m.name {
		m.Errorf("GetParameter: got name %s; expected %s", *params.Name, m.name)
	}
	if !params.WithDecryption {
		m.Error("GetParameter: WithDecryption was false")
	}
	if m.err != nil {
		return nil, m.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: m.value}}, nil
}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestCredentials(t *testing.T) {
	full := map[string]string{
		EnvAPIKey:       "key",
		EnvAudienceID:   "aud",
		EnvServerPrefix: "us1",
	}

	t.Run("reads all values from env", func(t *testing.T) {
		got, err := NewLoader(env(full), nil).Credentials(context.Background())
		if err != nil {
			t.Fatalf("got err %v; expected nil", err)
		}
		want := Credentials{APIKey: "key", AudienceID: "aud", ServerPrefix: "us1"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("fields mismatch in Credentials (-want +got):\n%s", diff)
		}
	})

	for _, name := range []string{EnvAPIKey, EnvAudienceID, EnvServerPrefix} {
		t.Run(fmt.Sprintf("fails without %s", name), func(t *testing.T) {
			vars := map[string]string{}
			for k, v := range full {
				vars[k] = v
			}
			delete(vars, name)

			_, err := NewLoader(env(vars), nil).Credentials(context.Background())
			if !errors.Is(err, ErrMissingCredentials) {
				t.Fatalf("got err %v; expected %v", err, ErrMissingCredentials)
			}
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error %q does not name %s", err, name)
			}
		})
	}

	t.Run("rereads env on every call", func(t *testing.T) {
		vars := map[string]string{}
		l := NewLoader(env(vars), nil)
		if _, err := l.Credentials(context.Background()); !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("got err %v; expected %v", err, ErrMissingCredentials)
		}
		for k, v := range full {
			vars[k] = v
		}
		if _, err := l.Credentials(context.Background()); err != nil {
			t.Errorf("got err %v; expected nil", err)
		}
	})
}

func TestCredentialsFromSSM(t *testing.T) {
	vars := map[string]string{
		EnvAPIKeyParam:  "/newsletter/mailchimp-key",
		EnvAudienceID:   "aud",
		EnvServerPrefix: "us1",
	}

	t.Run("fetches api key once", func(t *testing.T) {
		m := &mockSSMGetParameterAPI{T: t, name: "/newsletter/mailchimp-key", value: aws.String("secret")}
		l := NewLoader(env(vars), m)
		for i := 0; i < 3; i++ {
			got, err := l.Credentials(context.Background())
			if err != nil {
				t.Fatalf("got err %v; expected nil", err)
			}
			if got.APIKey != "secret" {
				t.Errorf("unexpected APIKey: got %s; expected %s", got.APIKey, "secret")
			}
		}
		if m.calls != 1 {
			t.Errorf("GetParameter called %d times; expected 1", m.calls)
		}
	})

	t.Run("prefers env api key", func(t *testing.T) {
		m := &mockSSMGetParameterAPI{T: t, name: "/newsletter/mailchimp-key", value: aws.String("secret")}
		withKey := map[string]string{EnvAPIKey: "plain"}
		for k, v := range vars {
			withKey[k] = v
		}
		got, err := NewLoader(env(withKey), m).Credentials(context.Background())
		if err != nil {
			t.Fatalf("got err %v; expected nil", err)
		}
		if got.APIKey != "plain" {
			t.Errorf("unexpected APIKey: got %s; expected %s", got.APIKey, "plain")
		}
		if m.calls != 0 {
			t.Errorf("GetParameter called %d times; expected 0", m.calls)
		}
	})

	t.Run("does not cache failures", func(t *testing.T) {
		m := &mockSSMGetParameterAPI{T: t, name: "/newsletter/mailchimp-key", err: errors.New("throttled")}
		l := NewLoader(env(vars), m)
		if _, err := l.Credentials(context.Background()); !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("got err %v; expected %v", err, ErrMissingCredentials)
		}
		m.err = nil
		m.value = aws.String("secret")
		if _, err := l.Credentials(context.Background()); err != nil {
			t.Errorf("got err %v; expected nil", err)
		}
		if m.calls != 2 {
			t.Errorf("GetParameter called %d times; expected 2", m.calls)
		}
	})

	t.Run("fails on empty parameter", func(t *testing.T) {
		m := &mockSSMGetParameterAPI{T: t, name: "/newsletter/mailchimp-key"}
		if _, err := NewLoader(env(vars), m).Credentials(context.Background()); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("got err %v; expected %v", err, ErrMissingCredentials)
		}
	})

	t.Run("fails without ssm client", func(t *testing.T) {
		if _, err := NewLoader(env(vars), nil).Credentials(context.Background()); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("got err %v; expected %v", err, ErrMissingCredentials)
		}
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKeyParam, "")
	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvAudienceID, "aud")
	t.Setenv(EnvServerPrefix, "us1")

	l, err := LoadFromEnv(context.Background())
	if err != nil {
		t.Fatalf("got err %v; expected nil", err)
	}
	if l.ssm != nil {
		t.Error("created SSM client without parameter name")
	}
	got, err := l.Credentials(context.Background())
	if err != nil {
		t.Fatalf("got err %v; expected nil", err)
	}
	if got.APIKey != "key" {
		t.Errorf("unexpected APIKey: got %s; expected %s", got.APIKey, "key")
	}
}

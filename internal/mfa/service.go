package mfa

import (
	"context"
	"time"
)

// Service bundles the provider client and the callback wait queue that the
// Bind handler and the HTTP side-channel both need.
type Service struct {
	Client *Client
	Queue  *Queue
	Key    string // mfa_key catalogue setting, also the JWT audience
	Secret string // mfa_secret catalogue setting, the JWT signing secret
}

// NewService builds a Service from the directory's mfa_key/mfa_secret
// catalogue settings and provider base URL.
func NewService(baseURL, key, secret string, timeoutSeconds int) *Service {
	return &Service{
		Client: NewClient(baseURL, key, secret),
		Queue:  NewQueue(time.Duration(timeoutSeconds) * time.Second),
		Key:    key,
		Secret: secret,
	}
}

// Challenge opens a redirect-based challenge for upn and blocks until the
// HTTP callback resolves it (via Service.Resolve) or the queue's timeout
// elapses. callbackURL is the side-channel endpoint the provider redirects
// back to once the user completes the challenge there.
func (s *Service) Challenge(ctx context.Context, upn string, directoryID int64, callbackURL string) (bool, error) {
	if _, err := s.Client.CreateChallenge(ctx, upn, callbackURL, directoryID); err != nil {
		return false, err
	}
	token, err := s.Queue.Await(ctx, upn)
	if err != nil {
		return false, err
	}
	subject, err := ValidateCallback(token, s.Key, s.Secret)
	if err != nil {
		return false, err
	}
	return subject == upn, nil
}

// Resolve delivers a callback token received on the HTTP side-channel to
// whichever Bind is waiting for upn.
func (s *Service) Resolve(upn, token string) bool {
	return s.Queue.Resolve(upn, token)
}


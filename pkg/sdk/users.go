package sdk

import "context"

func (s *Session) GetProfile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := s.getJSON(ctx, "/users/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

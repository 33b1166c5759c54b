package sdk

import (
	"context"
	"fmt"
	"net/url"
)

func (s *Session) ListServers(ctx context.Context) ([]ServerSummary, error) {
	var servers []ServerSummary
	if err := s.getJSON(ctx, "/servers", &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

func (s *Session) GetServer(ctx context.Context, id string) (*ServerDetail, error) {
	var server ServerDetail
	if err := s.getJSON(ctx, "/servers/"+url.PathEscape(id), &server); err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *Session) Power(ctx context.Context, id, action string) (*Ack, error) {
	if action != PowerStart && action != PowerStop {
		return nil, fmt.Errorf("sdk: unknown power action %q", action)
	}
	var ack Ack
	err := s.postJSON(ctx, fmt.Sprintf("/servers/%s/power", url.PathEscape(id)), PowerRequest{Action: action}, &ack)
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

func (s *Session) StartServer(ctx context.Context, id string) (*Ack, error) {
	return s.Power(ctx, id, PowerStart)
}

func (s *Session) StopServer(ctx context.Context, id string) (*Ack, error) {
	return s.Power(ctx, id, PowerStop)
}

// Deploy provisions a new server from a template. A nil config is sent
// as an empty object.
func (s *Session) Deploy(ctx context.Context, req DeploymentRequest) (*Ack, error) {
	config := req.Config
	if config == nil {
		config = map[string]string{}
	}
	var ack Ack
	if err := s.postJSON(ctx, "/servers/deploy", DeployRequest{GameID: req.TemplateID, Config: config}, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

package sdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"craftcloud/pkg/sdk"
)

// fileStore stands in for a credential store written outside this module.
type fileStore struct {
	token string
	saved []string
}

func (f *fileStore) GetCredential() (string, bool, error) {
	return f.token, f.token != "", nil
}

func (f *fileStore) SaveCredential(token string) error {
	f.token = token
	f.saved = append(f.saved, token)
	return nil
}

func (f *fileStore) DeleteCredential() error {
	f.token = ""
	return nil
}

var _ sdk.CredentialStore = (*fileStore)(nil)

func TestExternalCallerUsesOnlySDKTypes(t *testing.T) {
	cpu := 12.5
	mux := http.NewServeMux()
	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]sdk.ServerSummary{{ID: "s1", Name: "vh", Status: sdk.StatusOnline}})
	})
	mux.HandleFunc("/servers/s1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sdk.ServerDetail{
			ServerSummary: sdk.ServerSummary{ID: "s1", Name: "vh", Status: sdk.StatusOnline},
			CPU:           &cpu,
		})
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sdk.UserProfile{Username: "ana", Credits: 40})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := sdk.NewClient(sdk.ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.NewSession(&fileStore{token: "tok"})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	ctx := context.Background()
	var servers []sdk.ServerSummary
	if servers, err = session.ListServers(ctx); err != nil || len(servers) != 1 {
		t.Fatalf("ListServers: %v %+v", err, servers)
	}
	var detail *sdk.ServerDetail
	if detail, err = session.GetServer(ctx, servers[0].ID); err != nil {
		t.Fatalf("GetServer failed: %v", err)
	}
	var usage sdk.ServerUsage
	var ok bool
	if usage, ok = detail.Usage(); !ok || usage.CPU != cpu {
		t.Errorf("unexpected usage %+v ok=%v", usage, ok)
	}
	var profile *sdk.UserProfile
	if profile, err = session.GetProfile(ctx); err != nil || profile.Credits != 40 {
		t.Errorf("GetProfile: %v %+v", err, profile)
	}
}

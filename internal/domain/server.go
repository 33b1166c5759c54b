package domain

import "craftcloud/pkg/sdk"

const (
	StatusOnline  = sdk.StatusOnline
	StatusOffline = sdk.StatusOffline
	StatusUnknown = sdk.StatusUnknown
)

type (
	ServerSummary     = sdk.ServerSummary
	ServerDetail      = sdk.ServerDetail
	ServerUsage       = sdk.ServerUsage
	DeploymentRequest = sdk.DeploymentRequest
)

// PowerActionFor picks the toggle action for a server in the given status.
func PowerActionFor(status string) string {
	if status == StatusOnline {
		return sdk.PowerStop
	}
	return sdk.PowerStart
}

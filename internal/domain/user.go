package domain

import "craftcloud/pkg/sdk"

type UserProfile = sdk.UserProfile

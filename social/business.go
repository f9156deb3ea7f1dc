package social

import (
	"strings"

	authclient "github.com/goliatone/go-auth-client"
)

const (
	AccountTypePersonal = "PERSONAL"
	AccountTypeBusiness = "BUSINESS"
	AccountTypeCreator  = "CREATOR"
)

// UpgradeRecommendations are attached to personal accounts.
var UpgradeRecommendations = []string{
	"Switch to a Business or Creator account to unlock insights.",
	"Connect a Facebook Page to publish content from the app.",
	"Professional accounts can manage direct messages from the app.",
}

// IsBusinessAccount reports whether accountType is BUSINESS or CREATOR.
func IsBusinessAccount(accountType string) bool {
	switch strings.ToUpper(strings.TrimSpace(accountType)) {
	case AccountTypeBusiness, AccountTypeCreator:
		return true
	}
	return false
}

// DeriveBusinessVerification maps an Instagram account type to its feature
// set. Comment management is available to every account type.
func DeriveBusinessVerification(accountType string) authclient.BusinessVerification {
	accountType = strings.ToUpper(strings.TrimSpace(accountType))
	if accountType == "" {
		accountType = AccountTypePersonal
	}

	business := IsBusinessAccount(accountType)
	out := authclient.BusinessVerification{
		AccountType: accountType,
		IsVerified:  business,
		Features: authclient.BusinessFeatures{
			Insights:          business,
			ContentPublishing: business,
			MessageManagement: business,
			CommentManagement: true,
		},
	}
	if !business {
		out.Recommendations = append([]string(nil), UpgradeRecommendations...)
	}
	return out
}

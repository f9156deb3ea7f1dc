package authclient

// Provider identifies where an identity was authenticated.
type Provider = string

const (
	ProviderEmail     Provider = "email"
	ProviderGoogle    Provider = "google"
	ProviderNaver     Provider = "naver"
	ProviderInstagram Provider = "instagram"
)

// Group is a named team membership.
type Group struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Members     []string `json:"members,omitempty"`
	IsDefault   bool     `json:"is_default,omitempty"`
}

// Permission is a single resource/action grant.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// String renders the permission as resource:action.
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// BusinessFeatures lists the Instagram capabilities unlocked by the account type.
type BusinessFeatures struct {
	Insights          bool `json:"insights"`
	ContentPublishing bool `json:"contentPublishing"`
	MessageManagement bool `json:"messageManagement"`
	CommentManagement bool `json:"commentManagement"`
}

// BusinessVerification is the provider specific extension carried by
// Instagram users.
type BusinessVerification struct {
	AccountType     string           `json:"accountType"`
	IsVerified      bool             `json:"isVerified"`
	Features        BusinessFeatures `json:"features"`
	Recommendations []string         `json:"recommendations,omitempty"`
}

// User is the resolved identity. Controllers replace it wholesale, callers
// should treat it as read only.
type User struct {
	ID          string                `json:"id"`
	Email       string                `json:"email,omitempty"`
	Name        string                `json:"name,omitempty"`
	Provider    Provider              `json:"provider,omitempty"`
	Groups      []Group               `json:"groups,omitempty"`
	Permissions []Permission          `json:"permissions,omitempty"`
	Business    *BusinessVerification `json:"business,omitempty"`
	Extensions  map[string]any        `json:"extensions,omitempty"`
}

// GroupNames returns the names of the memberships in order.
func (u *User) GroupNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Clone returns a deep copy so snapshots never share slices.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Groups != nil {
		out.Groups = make([]Group, len(u.Groups))
		for i, g := range u.Groups {
			out.Groups[i] = g
			out.Groups[i].Members = append([]string(nil), g.Members...)
		}
	}
	if u.Permissions != nil {
		out.Permissions = append([]Permission(nil), u.Permissions...)
	}
	if u.Business != nil {
		b := *u.Business
		b.Recommendations = append([]string(nil), u.Business.Recommendations...)
		out.Business = &b
	}
	if u.Extensions != nil {
		out.Extensions = make(map[string]any, len(u.Extensions))
		for k, v := range u.Extensions {
			out.Extensions[k] = v
		}
	}
	return &out
}

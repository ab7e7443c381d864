package dto

type ProfileResponse struct {
	AccountID   string `json:"account_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	UsageMode   string `json:"usage_mode"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type UsageModeRequest struct {
	UsageMode string `json:"usage_mode"`
}

type UsageModeResponse struct {
	UsageMode string `json:"usage_mode"`
	// Changed is false when the stored mode was already chosen and the
	// request could not overwrite it.
	Changed bool `json:"changed"`
}

type LinkCredentialRequest struct {
	Kind     string `json:"kind"`
	Password string `json:"password,omitempty"`
	IDToken  string `json:"id_token,omitempty"`
}

type CredentialResponse struct {
	Kind      string `json:"kind"`
	SubjectID string `json:"subject_id"`
}

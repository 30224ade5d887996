package models

// Identity is an authenticated user as reported by the identity provider.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Admin       bool   `json:"is_admin"`
}

// Credentials is what a client presents to sign in. Firebase uses IDToken,
// the local provider uses DisplayName plus AdminToken for moderators.
type Credentials struct {
	IDToken     string `json:"id_token"`
	DisplayName string `json:"display_name"`
	AdminToken  string `json:"admin_token,omitempty"`
}

// Session is a signed-in identity and the bearer token that proves it.
type Session struct {
	Identity    Identity `json:"identity"`
	AccessToken string   `json:"access_token"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	IDToken     string `json:"id_token" conform:"trim"`
	DisplayName string `json:"display_name" conform:"trim"`
	AdminToken  string `json:"admin_token"`
}

// ModerationRequest is the body of PUT /admin/reports/:id/moderation.
type ModerationRequest struct {
	Status ModerationStatus `json:"status" binding:"required"`
}

// PoliceNotificationRequest is the body of PUT /admin/reports/:id/police.
type PoliceNotificationRequest struct {
	Name            string `json:"name" conform:"trim"`
	Phone           string `json:"phone" conform:"trim"`
	Address         string `json:"address" conform:"trim"`
	CaseReferenceID string `json:"case_reference_id" conform:"trim"`
}

// DispositionRequest is the body of PUT /admin/reports/:id/disposition.
type DispositionRequest struct {
	Disposition Disposition `json:"disposition" binding:"required"`
}

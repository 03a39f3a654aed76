package dto

// LoginRequest carries the operator credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse describes the authenticated session.
type SessionResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AuthMethod  string `json:"auth_method"`
	LoginTime   string `json:"login_time"`
}

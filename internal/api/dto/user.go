package dto

// UserSaveRequest adds a local console user or resets its password.
type UserSaveRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserListResponse lists local console usernames.
type UserListResponse struct {
	Users []string `json:"users"`
	Total int      `json:"total"`
}

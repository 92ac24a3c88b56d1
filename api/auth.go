// Copyright (c) 2025 BVK Chaitanya

package api

const (
	AuthLoginPath   = "/auth/login"
	AuthRefreshPath = "/auth/refresh"
	AuthLogoutPath  = "/auth/logout"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type LogoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}

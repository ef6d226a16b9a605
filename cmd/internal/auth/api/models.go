package api

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// Code is the TOTP code, required only when the user has 2FA enabled.
	Code string `json:"code,omitempty"`
}

type tokenPairResponse struct {
	AuthToken    string `json:"authToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	AuthToken    string `json:"authToken"`
	RefreshToken string `json:"refreshToken"`
}

type twoFactorSetupResponse struct {
	// OtpauthURL is rendered as a QR code by the client app.
	OtpauthURL string `json:"otpauthUrl"`
}

type twoFactorVerifyRequest struct {
	Code string `json:"code"`
}

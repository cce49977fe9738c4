package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type challengeRequest struct {
	Address string `json:"address"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	// Address is the principal the account acts as on the ledger.
	Address string `json:"address"`
	// Challenge is the token from /auth/challenge for Address.
	Challenge string `json:"challenge"`
	// Signature is Address's personal-message signature over the
	// challenge message, 0x-prefixed hex.
	Signature string `json:"signature"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

// Challenge issues the message a wallet must sign to register its address.
//
// @Summary      Request an address ownership challenge
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      challengeRequest  true  "Address to prove"
// @Success      200   {object}  domain.AddressChallenge
// @Failure      400   {object}  map[string]string
// @Router       /auth/challenge [post]
func (h *AuthHandler) Challenge(c echo.Context) error {
	var req challengeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	ch, err := h.authService.Challenge(c.Request().Context(), req.Address)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "a non-zero 0x-prefixed address is required"})
		}
		return err
	}
	return c.JSON(http.StatusOK, ch)
}

// Register creates a user account bound to an address whose holder signed
// the challenge for it.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		Address:   req.Address,
		Challenge: req.Challenge,
		Signature: req.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, domain.ErrAddressNotProven):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "username, password, email and a non-zero address are required"})
		}
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{User: user})
}

// Login authenticates a user and returns a JWT whose address claim is the
// caller of every subsequent ledger request.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		case errors.Is(err, domain.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return err
	}

	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

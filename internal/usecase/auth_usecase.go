package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthUsecase はスタッフPINでのセッション発行。
// 端末ローカルで完結する（本部のアカウント基盤には依存しない）。
type AuthUsecase struct {
	staffPINHash   string
	managerPINHash string
	secret         []byte
	accessTTL      time.Duration
	clock          Clock
}

func NewAuthUsecase(staffPINHash string, managerPINHash string, secret string, accessTTL time.Duration, clock Clock) *AuthUsecase {
	return &AuthUsecase{
		staffPINHash:   staffPINHash,
		managerPINHash: managerPINHash,
		secret:         []byte(secret),
		accessTTL:      accessTTL,
		clock:          clock,
	}
}

type PinLoginInput struct {
	StaffName string
	PIN       string
}

type PinLoginOutput struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (u *AuthUsecase) PinLogin(ctx context.Context, in PinLoginInput) (PinLoginOutput, error) {
	name := strings.TrimSpace(in.StaffName)
	if name == "" || len(name) > 100 {
		return PinLoginOutput{}, NewHTTPError(http.StatusBadRequest, "invalid staff_name")
	}
	if in.PIN == "" {
		return PinLoginOutput{}, NewHTTPError(http.StatusBadRequest, "invalid pin")
	}

	//マネージャー→スタッフの順で照合
	var role model.StaffRole
	switch {
	case u.managerPINHash != "" && bcrypt.CompareHashAndPassword([]byte(u.managerPINHash), []byte(in.PIN)) == nil:
		role = model.StaffRoleManager
	case bcrypt.CompareHashAndPassword([]byte(u.staffPINHash), []byte(in.PIN)) == nil:
		role = model.StaffRoleStaff
	default:
		return PinLoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid pin")
	}

	now := u.clock.Now()
	expiresAt := now.Add(u.accessTTL)

	claims := jwt.MapClaims{
		"sub":  name,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(u.secret)
	if err != nil {
		return PinLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "token error")
	}

	return PinLoginOutput{
		Token:     signed,
		Role:      string(role),
		ExpiresAt: expiresAt,
	}, nil
}

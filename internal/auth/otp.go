package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidMobile = errors.New("mobile must be exactly 10 digits")
	ErrCodeMismatch  = errors.New("code is wrong or expired")
)

var mobileRe = regexp.MustCompile(`^\d{10}$`)

// OTPService issues and verifies one-time login codes. Codes live in
// redis under otp:<mobile> with a TTL; verification consumes the code.
type OTPService struct {
	rdb      *redis.Client
	secret   string
	codeTTL  time.Duration
	tokenTTL time.Duration
}

func NewOTPService(rdb *redis.Client, secret string, codeTTL, tokenTTL time.Duration) *OTPService {
	return &OTPService{
		rdb:      rdb,
		secret:   secret,
		codeTTL:  codeTTL,
		tokenTTL: tokenTTL,
	}
}

// Request generates a 6-digit code for the mobile number and stores it
// with the configured TTL. The code is returned to the caller, which
// decides how to deliver it (SMS gateway, or the response body in dev).
func (s *OTPService) Request(ctx context.Context, mobile string) (string, error) {
	if !mobileRe.MatchString(mobile) {
		return "", ErrInvalidMobile
	}

	code, err := sixDigitCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	if err := s.rdb.Set(ctx, otpKey(mobile), code, s.codeTTL).Err(); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// Verify checks the code, consumes it and returns a signed login token.
func (s *OTPService) Verify(ctx context.Context, mobile, code string) (string, error) {
	if !mobileRe.MatchString(mobile) {
		return "", ErrInvalidMobile
	}

	stored, err := s.rdb.Get(ctx, otpKey(mobile)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCodeMismatch
		}
		return "", fmt.Errorf("load code: %w", err)
	}
	if stored != code {
		// Leave the stored code in place so a typo does not burn it.
		return "", ErrCodeMismatch
	}
	_ = s.rdb.Del(ctx, otpKey(mobile)).Err()

	return MakeToken(mobile, s.secret, s.tokenTTL)
}

func otpKey(mobile string) string {
	return "otp:" + mobile
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

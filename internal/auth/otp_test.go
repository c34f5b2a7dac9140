package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carebook/appointment-booking/internal/auth"
)

func newOTPService(t *testing.T) (*auth.OTPService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return auth.NewOTPService(rdb, "test-secret", 5*time.Minute, time.Hour), mr
}

func TestOTPRoundTrip(t *testing.T) {
	svc, _ := newOTPService(t)
	ctx := context.Background()

	code, err := svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, code, 6)

	token, err := svc.Verify(ctx, "9876543210", code)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ParseToken(token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, "9876543210", claims.Mobile)

	// Code is consumed on success.
	_, err = svc.Verify(ctx, "9876543210", code)
	require.ErrorIs(t, err, auth.ErrCodeMismatch)
}

func TestOTPWrongCodeDoesNotBurn(t *testing.T) {
	svc, _ := newOTPService(t)
	ctx := context.Background()

	code, err := svc.Request(ctx, "9876543210")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "9876543210", "000000")
	require.ErrorIs(t, err, auth.ErrCodeMismatch)

	// The right code still works after a typo.
	_, err = svc.Verify(ctx, "9876543210", code)
	require.NoError(t, err)
}

func TestOTPExpires(t *testing.T) {
	svc, mr := newOTPService(t)
	ctx := context.Background()

	code, err := svc.Request(ctx, "9876543210")
	require.NoError(t, err)

	mr.FastForward(6 * time.Minute)

	_, err = svc.Verify(ctx, "9876543210", code)
	require.ErrorIs(t, err, auth.ErrCodeMismatch)
}

func TestOTPInvalidMobile(t *testing.T) {
	svc, _ := newOTPService(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, "12345")
	require.ErrorIs(t, err, auth.ErrInvalidMobile)

	_, err = svc.Verify(ctx, "not-a-number", "123456")
	require.ErrorIs(t, err, auth.ErrInvalidMobile)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tok, err := auth.MakeToken("9876543210", "secret-a", time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken(tok, "secret-b")
	require.Error(t, err)
}

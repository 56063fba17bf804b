package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchnorrSignVerifyRoundTrip(t *testing.T) {
	kp, err := KeyPairRandom()
	require.NoError(t, err)

	x := Ed25519SecretToCurveScalar(kp.Secret)
	msg := []byte("enrollment binding message")

	sig := SignSchnorr(x, msg)
	require.True(t, VerifySchnorr(kp.Public, msg, sig))
	require.False(t, VerifySchnorr(kp.Public, []byte("different message"), sig))

	other, err := KeyPairRandom()
	require.NoError(t, err)
	require.False(t, VerifySchnorr(other.Public, msg, sig))

	tampered := sig
	tampered.S[0] ^= 0xFF
	require.False(t, VerifySchnorr(kp.Public, msg, tampered))
}

func TestCurveScalarPointMatchesEd25519PublicKey(t *testing.T) {
	kp, err := KeyPairRandom()
	require.NoError(t, err)

	x := Ed25519SecretToCurveScalar(kp.Secret)
	require.Equal(t, [32]byte(kp.Public), x.Point())
}

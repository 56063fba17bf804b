package crypto

import "errors"

// ErrMalformedAddress is returned by DecodeAddress/DecodeSeed when the CRC
// checksum fails to verify, the version byte is unrecognized, or the decoded
// length is wrong. It is the only error the address codec can produce;
// signature verification never returns an error, it simply reports false.
var ErrMalformedAddress = errors.New("crypto: malformed address")

package ldmodel

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// longScale is the 15-hex-digit divisor (0xFFFFFFFFFFFFFFF, fifteen F's) specified in spec §4.2.
// It and the 15-character hash prefix are part of the cross-SDK wire contract: any change breaks
// bucketing agreement with every other LaunchDarkly SDK.
const longScale = float64(0xFFFFFFFFFFFFFFF)

// userAttributeGetter is satisfied by lduser.User; declared locally so ldmodel does not import
// lduser (which already imports ldmodel's sibling packages in the other direction), keeping the
// data-model layer free of a dependency on the user-model layer.
type userAttributeGetter interface {
	GetAttribute(name string) ldvalue.Value
	GetKey() string
}

type secondaryKeyGetter interface {
	GetSecondary() (string, bool)
}

// Bucket computes the deterministic [0, 1) bucket assignment for a user under a given flag or
// segment key, bucketing attribute, and salt (spec §4.2). The bucketing attribute defaults to
// "key" when bucketBy is empty.
func Bucket(user userAttributeGetter, contextKey, bucketBy, salt string) float64 {
	if bucketBy == "" {
		bucketBy = "key"
	}

	var idHash string
	if bucketBy == "key" {
		idHash = user.GetKey()
	} else {
		v := user.GetAttribute(bucketBy)
		switch v.Type() {
		case ldvalue.StringType:
			idHash = v.String()
		case ldvalue.NumberType:
			if !v.IsInt() {
				return 0
			}
			idHash = strconv.Itoa(v.Int())
		default:
			return 0
		}
	}

	if sk, ok := user.(secondaryKeyGetter); ok {
		if secondary, has := sk.GetSecondary(); has {
			idHash = idHash + "." + secondary
		}
	}

	h := sha1.New()
	_, _ = h.Write([]byte(contextKey + "." + salt + "." + idHash))
	hash := hex.EncodeToString(h.Sum(nil))[:15]

	intVal, _ := strconv.ParseUint(hash, 16, 64)
	return float64(intVal) / longScale
}

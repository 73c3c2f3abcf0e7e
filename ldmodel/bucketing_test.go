package ldmodel

import (
	"testing"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
	"github.com/stretchr/testify/assert"
)

type fakeUser struct {
	key       string
	secondary string
	hasSecondary bool
	attrs     map[string]ldvalue.Value
}

func (u fakeUser) GetKey() string { return u.key }
func (u fakeUser) GetAttribute(name string) ldvalue.Value {
	if v, ok := u.attrs[name]; ok {
		return v
	}
	return ldvalue.Null()
}
func (u fakeUser) GetSecondary() (string, bool) { return u.secondary, u.hasSecondary }

func TestBucketUserByKey(t *testing.T) {
	// fixed expected values every conformant SDK must reproduce (spec §8 S3, §4.2).
	u1 := fakeUser{key: "userKeyA"}
	bucket := Bucket(u1, "hashKey", "key", "saltyA")
	assert.InDelta(t, 0.42157587433924, bucket, 0.0000001)

	u2 := fakeUser{key: "userKeyB"}
	bucket2 := Bucket(u2, "hashKey", "key", "saltyA")
	assert.InDelta(t, 0.67084849657034, bucket2, 0.0000001)

	u3 := fakeUser{key: "userKeyC"}
	bucket3 := Bucket(u3, "hashKey", "key", "saltyA")
	assert.InDelta(t, 0.10343106172770, bucket3, 0.0000001)
}

func TestBucketIsWithinZeroToOne(t *testing.T) {
	for i := 0; i < 50; i++ {
		u := fakeUser{key: string(rune('a' + i%26))}
		b := Bucket(u, "flag", "key", "salt")
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 1.0)
	}
}

func TestBucketBySecondaryKeyChangesBucket(t *testing.T) {
	u1 := fakeUser{key: "userKey"}
	u2 := fakeUser{key: "userKey", secondary: "otherKey", hasSecondary: true}
	assert.NotEqual(t, Bucket(u1, "flag", "key", "salt"), Bucket(u2, "flag", "key", "salt"))
}

func TestBucketByIntAttribute(t *testing.T) {
	u := fakeUser{key: "userKey", attrs: map[string]ldvalue.Value{"stableID": ldvalue.Int(33333)}}
	b := Bucket(u, "flag", "stableID", "salt")
	assert.GreaterOrEqual(t, b, 0.0)
	assert.Less(t, b, 1.0)
}

func TestBucketByUnsupportedAttributeTypeReturnsZero(t *testing.T) {
	u := fakeUser{key: "userKey", attrs: map[string]ldvalue.Value{"obj": ldvalue.ObjectBuild(0).Build()}}
	assert.Equal(t, 0.0, Bucket(u, "flag", "obj", "salt"))
}

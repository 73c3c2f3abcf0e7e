// Package lduser defines the User type that the evaluator and event pipeline operate on, along
// with a chainable UserBuilder for constructing one.
package lduser

import (
	"encoding/json"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// User contains the attributes of a user against which a flag is evaluated. The only required
// attribute is Key, which must uniquely identify the user. All other known attributes are
// pointer-optional: a nil pointer means the attribute was never set, which evaluation and event
// serialization must treat differently from an empty string.
//
// The preferred way to construct a User is NewUser, NewAnonymousUser, or NewUserBuilder; once
// built, a User should be treated as immutable, since it is read concurrently by the evaluator
// and the event pipeline.
type User struct {
	key                   string
	secondary             *string
	ip                    *string
	country               *string
	email                 *string
	firstName             *string
	lastName              *string
	avatar                *string
	name                  *string
	anonymous             *bool
	custom                map[string]ldvalue.Value
	privateAttributeNames []string
}

// NewUser creates a new user identified by the given key.
func NewUser(key string) User {
	return User{key: key}
}

// NewAnonymousUser creates a new anonymous user identified by the given key.
func NewAnonymousUser(key string) User {
	anon := true
	return User{key: key, anonymous: &anon}
}

// GetKey returns the unique key of the user.
func (u User) GetKey() string { return u.key }

// GetSecondary returns the secondary key attribute, if set.
func (u User) GetSecondary() (string, bool) { return derefString(u.secondary) }

// GetIP returns the IP address attribute, if set.
func (u User) GetIP() (string, bool) { return derefString(u.ip) }

// GetCountry returns the country attribute, if set.
func (u User) GetCountry() (string, bool) { return derefString(u.country) }

// GetEmail returns the email address attribute, if set.
func (u User) GetEmail() (string, bool) { return derefString(u.email) }

// GetFirstName returns the first name attribute, if set.
func (u User) GetFirstName() (string, bool) { return derefString(u.firstName) }

// GetLastName returns the last name attribute, if set.
func (u User) GetLastName() (string, bool) { return derefString(u.lastName) }

// GetAvatar returns the avatar URL attribute, if set.
func (u User) GetAvatar() (string, bool) { return derefString(u.avatar) }

// GetName returns the full name attribute, if set.
func (u User) GetName() (string, bool) { return derefString(u.name) }

// GetAnonymous returns the anonymous attribute, defaulting to false if it was never set.
func (u User) GetAnonymous() bool { return u.anonymous != nil && *u.anonymous }

// GetAnonymousOptional returns the anonymous attribute along with whether it was explicitly set.
func (u User) GetAnonymousOptional() (bool, bool) { return u.GetAnonymous(), u.anonymous != nil }

// GetCustom returns a custom attribute by name. The second return value is false if no value was
// ever set for that name.
func (u User) GetCustom(attrName string) (ldvalue.Value, bool) {
	if u.custom == nil {
		return ldvalue.Null(), false
	}
	v, ok := u.custom[attrName]
	return v, ok
}

// GetCustomKeys returns the names of all custom attributes set on this user.
func (u User) GetCustomKeys() []string {
	if len(u.custom) == 0 {
		return nil
	}
	keys := make([]string, 0, len(u.custom))
	for k := range u.custom {
		keys = append(keys, k)
	}
	return keys
}

// GetPrivateAttributeNames returns the names of attributes marked private on this user.
func (u User) GetPrivateAttributeNames() []string { return u.privateAttributeNames }

// GetAttribute resolves any attribute, built-in or custom, by name. It is the lookup the
// evaluator uses for clause matching and bucketing (spec §4.1/§4.2): "key" and the other built-in
// attribute names take priority over a custom attribute of the same name. An attribute that was
// never set resolves to ldvalue.Null().
func (u User) GetAttribute(name string) ldvalue.Value {
	switch name {
	case "key":
		return ldvalue.String(u.key)
	case "secondary":
		return optionalStringValue(u.secondary)
	case "ip":
		return optionalStringValue(u.ip)
	case "country":
		return optionalStringValue(u.country)
	case "email":
		return optionalStringValue(u.email)
	case "firstName":
		return optionalStringValue(u.firstName)
	case "lastName":
		return optionalStringValue(u.lastName)
	case "avatar":
		return optionalStringValue(u.avatar)
	case "name":
		return optionalStringValue(u.name)
	case "anonymous":
		if u.anonymous == nil {
			return ldvalue.Null()
		}
		return ldvalue.Bool(*u.anonymous)
	}
	if v, ok := u.GetCustom(name); ok {
		return v
	}
	return ldvalue.Null()
}

func optionalStringValue(p *string) ldvalue.Value {
	if p == nil {
		return ldvalue.Null()
	}
	return ldvalue.String(*p)
}

func derefString(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// Equal reports whether two users have identical attributes. Regular struct equality is not safe
// for User because of the custom attribute map.
func (u User) Equal(other User) bool {
	if u.key != other.key ||
		!equalStringPtr(u.secondary, other.secondary) ||
		!equalStringPtr(u.ip, other.ip) ||
		!equalStringPtr(u.country, other.country) ||
		!equalStringPtr(u.email, other.email) ||
		!equalStringPtr(u.firstName, other.firstName) ||
		!equalStringPtr(u.lastName, other.lastName) ||
		!equalStringPtr(u.avatar, other.avatar) ||
		!equalStringPtr(u.name, other.name) {
		return false
	}
	a1, ok1 := u.GetAnonymousOptional()
	a2, ok2 := other.GetAnonymousOptional()
	if ok1 != ok2 || a1 != a2 {
		return false
	}
	if len(u.custom) != len(other.custom) {
		return false
	}
	for k, v := range u.custom {
		v2, ok := other.custom[k]
		if !ok || v.JSONString() != v2.JSONString() {
			return false
		}
	}
	return stringSlicesEqual(u.privateAttributeNames, other.privateAttributeNames)
}

func equalStringPtr(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

// String returns a JSON representation of the user, mainly for logging.
func (u User) String() string {
	b, _ := json.Marshal(u)
	return string(b)
}

// MarshalJSON writes the user in the wire format described in spec §6: known attributes at the
// top level, custom attributes nested under "custom".
func (u User) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, 10)
	m["key"] = u.key
	putOptString(m, "secondary", u.secondary)
	putOptString(m, "ip", u.ip)
	putOptString(m, "country", u.country)
	putOptString(m, "email", u.email)
	putOptString(m, "firstName", u.firstName)
	putOptString(m, "lastName", u.lastName)
	putOptString(m, "avatar", u.avatar)
	putOptString(m, "name", u.name)
	if u.anonymous != nil {
		m["anonymous"] = *u.anonymous
	}
	if len(u.custom) > 0 {
		m["custom"] = u.custom
	}
	if len(u.privateAttributeNames) > 0 {
		m["privateAttributeNames"] = u.privateAttributeNames
	}
	return json.Marshal(m)
}

func putOptString(m map[string]interface{}, key string, p *string) {
	if p != nil {
		m[key] = *p
	}
}

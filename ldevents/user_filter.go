package ldevents

import (
	"sort"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
	"github.com/launchdarkly/go-server-sdk-flagcore/lduser"
)

// filteredUser is the wire representation of a user after private attributes have been removed
// (spec §6). Fields use pointers so an attribute that was never set is omitted from the JSON
// entirely, rather than serialized as an empty string.
type filteredUser struct {
	Key          string         `json:"key"`
	Secondary    *string        `json:"secondary,omitempty"`
	IP           *string        `json:"ip,omitempty"`
	Country      *string        `json:"country,omitempty"`
	Email        *string        `json:"email,omitempty"`
	FirstName    *string        `json:"firstName,omitempty"`
	LastName     *string        `json:"lastName,omitempty"`
	Avatar       *string        `json:"avatar,omitempty"`
	Name         *string        `json:"name,omitempty"`
	Anonymous    *bool          `json:"anonymous,omitempty"`
	Custom       *ldvalue.Value `json:"custom,omitempty"`
	PrivateAttrs []string       `json:"privateAttrs,omitempty"`
}

// scrubbedUser wraps the filtered result; it exists so future output-formatting code can attach
// more than just the JSON shape (e.g. whether anything was actually redacted) without changing
// scrubUser's signature.
type scrubbedUser struct {
	filteredUser filteredUser
}

// userFilter removes private attribute values from a user before it is serialized into an
// analytics event, per the global and per-user private-attribute settings in EventsConfiguration
// (spec §4.9, §6).
type userFilter struct {
	allAttributesPrivate bool
	globalPrivateAttrs   map[string]bool
}

func newUserFilter(config EventsConfiguration) userFilter {
	globals := make(map[string]bool, len(config.PrivateAttributeNames))
	for _, name := range config.PrivateAttributeNames {
		globals[name] = true
	}
	return userFilter{
		allAttributesPrivate: config.AllAttributesPrivate,
		globalPrivateAttrs:   globals,
	}
}

func (f userFilter) scrubUser(u lduser.User) scrubbedUser {
	fu := filteredUser{Key: u.GetKey()}
	var redacted []string

	isPrivate := func(name string) bool {
		if f.allAttributesPrivate || f.globalPrivateAttrs[name] {
			return true
		}
		for _, n := range u.GetPrivateAttributeNames() {
			if n == name {
				return true
			}
		}
		return false
	}

	assignOptString := func(name string, value string, ok bool, dest **string) {
		if !ok {
			return
		}
		if isPrivate(name) {
			redacted = append(redacted, name)
			return
		}
		v := value
		*dest = &v
	}

	if v, ok := u.GetSecondary(); ok {
		assignOptString("secondary", v, ok, &fu.Secondary)
	}
	if v, ok := u.GetIP(); ok {
		assignOptString("ip", v, ok, &fu.IP)
	}
	if v, ok := u.GetCountry(); ok {
		assignOptString("country", v, ok, &fu.Country)
	}
	if v, ok := u.GetEmail(); ok {
		assignOptString("email", v, ok, &fu.Email)
	}
	if v, ok := u.GetFirstName(); ok {
		assignOptString("firstName", v, ok, &fu.FirstName)
	}
	if v, ok := u.GetLastName(); ok {
		assignOptString("lastName", v, ok, &fu.LastName)
	}
	if v, ok := u.GetAvatar(); ok {
		assignOptString("avatar", v, ok, &fu.Avatar)
	}
	if v, ok := u.GetName(); ok {
		assignOptString("name", v, ok, &fu.Name)
	}

	if anon, ok := u.GetAnonymousOptional(); ok {
		a := anon
		fu.Anonymous = &a
	}

	if keys := u.GetCustomKeys(); len(keys) > 0 {
		builder := ldvalue.ObjectBuild(len(keys))
		any := false
		for _, name := range keys {
			value, _ := u.GetCustom(name)
			if isPrivate(name) {
				redacted = append(redacted, name)
				continue
			}
			builder.Set(name, value)
			any = true
		}
		if any {
			custom := builder.Build()
			fu.Custom = &custom
		}
	}

	if len(redacted) > 0 {
		sort.Strings(redacted)
		fu.PrivateAttrs = redacted
	}

	return scrubbedUser{filteredUser: fu}
}

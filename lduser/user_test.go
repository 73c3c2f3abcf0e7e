package lduser

import (
	"testing"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
	"github.com/stretchr/testify/assert"
)

type userStringPropertyDesc struct {
	name   string
	getter func(User) (string, bool)
	setter func(UserBuilder, string) UserBuilderCanMakeAttributePrivate
}

var allUserStringProperties = []userStringPropertyDesc{
	{"secondary", User.GetSecondary, UserBuilder.Secondary},
	{"ip", User.GetIP, UserBuilder.IP},
	{"country", User.GetCountry, UserBuilder.Country},
	{"email", User.GetEmail, UserBuilder.Email},
	{"firstName", User.GetFirstName, UserBuilder.FirstName},
	{"lastName", User.GetLastName, UserBuilder.LastName},
	{"avatar", User.GetAvatar, UserBuilder.Avatar},
	{"name", User.GetName, UserBuilder.Name},
}

func (p userStringPropertyDesc) assertNotSet(t *testing.T, user User) {
	_, ok := p.getter(user)
	assert.False(t, ok, "should not have had a value for %s", p.name)
}

func TestNewUser(t *testing.T) {
	user := NewUser("some-key")
	assert.Equal(t, "some-key", user.GetKey())
	for _, p := range allUserStringProperties {
		p.assertNotSet(t, user)
	}
	anon, ok := user.GetAnonymousOptional()
	assert.False(t, ok)
	assert.False(t, anon)
	assert.Nil(t, user.GetCustomKeys())
}

func TestNewAnonymousUser(t *testing.T) {
	user := NewAnonymousUser("some-key")
	assert.Equal(t, "some-key", user.GetKey())
	anon, ok := user.GetAnonymousOptional()
	assert.True(t, ok)
	assert.True(t, anon)
}

func TestBuilderSetsStringProperties(t *testing.T) {
	for _, p := range allUserStringProperties {
		builder := NewUserBuilder("key")
		p.setter(builder, "value-for-"+p.name)
		user := builder.Build()
		v, ok := p.getter(user)
		assert.True(t, ok, p.name)
		assert.Equal(t, "value-for-"+p.name, v, p.name)
	}
}

func TestBuilderCanMakeAttributePrivate(t *testing.T) {
	user := NewUserBuilder("key").Name("Bob").AsPrivateAttribute().Build()
	assert.Equal(t, []string{"name"}, user.GetPrivateAttributeNames())
}

func TestBuilderCustomAttribute(t *testing.T) {
	user := NewUserBuilder("key").Custom("rank", ldvalue.Int(3)).Build()
	v, ok := user.GetCustom("rank")
	assert.True(t, ok)
	assert.Equal(t, 3, v.Int())
}

func TestGetAttributeResolvesBuiltInsBeforeCustom(t *testing.T) {
	user := NewUserBuilder("key").Name("Bob").Custom("name", ldvalue.String("custom-name")).Build()
	assert.Equal(t, "Bob", user.GetAttribute("name").String())
	assert.True(t, user.GetAttribute("unset-custom").IsNull())
}

func TestGetAttributeKey(t *testing.T) {
	user := NewUser("abc")
	assert.Equal(t, "abc", user.GetAttribute("key").String())
}

func TestEqual(t *testing.T) {
	u1 := NewUserBuilder("key").Name("Bob").Custom("rank", ldvalue.Int(3)).Build()
	u2 := NewUserBuilder("key").Name("Bob").Custom("rank", ldvalue.Int(3)).Build()
	u3 := NewUserBuilder("key").Name("Carol").Build()
	assert.True(t, u1.Equal(u2))
	assert.False(t, u1.Equal(u3))
}

func TestBuilderFromUser(t *testing.T) {
	orig := NewUserBuilder("key").Name("Bob").Build()
	copyBuilder := NewUserBuilderFromUser(orig)
	modified := copyBuilder.Name("Carol").Build()

	name, _ := orig.GetName()
	assert.Equal(t, "Bob", name)
	modName, _ := modified.GetName()
	assert.Equal(t, "Carol", modName)
}

package lduser

import "github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"

// UserBuilder is a mutable builder for User, following the same pattern as the rest of this
// codebase's builders: call setter methods, then Build(). Setters for attributes that can be
// marked private return UserBuilderCanMakeAttributePrivate so AsPrivateAttribute can be chained.
//
//	user := NewUserBuilder("user-key").Name("Bob").Email("bob@example.com").Build()
//
// A UserBuilder must not be used from more than one goroutine at a time.
type UserBuilder interface {
	Key(value string) UserBuilder
	Secondary(value string) UserBuilderCanMakeAttributePrivate
	IP(value string) UserBuilderCanMakeAttributePrivate
	Country(value string) UserBuilderCanMakeAttributePrivate
	Email(value string) UserBuilderCanMakeAttributePrivate
	FirstName(value string) UserBuilderCanMakeAttributePrivate
	LastName(value string) UserBuilderCanMakeAttributePrivate
	Avatar(value string) UserBuilderCanMakeAttributePrivate
	Name(value string) UserBuilderCanMakeAttributePrivate
	Anonymous(value bool) UserBuilder
	Custom(name string, value ldvalue.Value) UserBuilderCanMakeAttributePrivate
	Build() User
}

// UserBuilderCanMakeAttributePrivate extends UserBuilder with AsPrivateAttribute, returned from
// setters whose attribute is eligible to be marked private. Key and Anonymous are not eligible,
// which is why their setters return plain UserBuilder instead.
type UserBuilderCanMakeAttributePrivate interface {
	UserBuilder
	AsPrivateAttribute() UserBuilder
}

type userBuilder struct {
	key          string
	secondary    *string
	ip           *string
	country      *string
	email        *string
	firstName    *string
	lastName     *string
	avatar       *string
	name         *string
	anonymous    *bool
	custom       map[string]ldvalue.Value
	privateAttrs map[string]bool
}

type attributeScopedBuilder struct {
	builder  *userBuilder
	attrName string
}

// NewUserBuilder constructs a UserBuilder for the user with the given key.
func NewUserBuilder(key string) UserBuilder {
	return &userBuilder{key: key}
}

// NewUserBuilderFromUser constructs a UserBuilder that starts out with all of an existing user's
// attributes, so that a modified copy can be built without mutating the original.
func NewUserBuilderFromUser(from User) UserBuilder {
	b := &userBuilder{
		key:       from.key,
		secondary: from.secondary,
		ip:        from.ip,
		country:   from.country,
		email:     from.email,
		firstName: from.firstName,
		lastName:  from.lastName,
		avatar:    from.avatar,
		name:      from.name,
		anonymous: from.anonymous,
	}
	if len(from.custom) > 0 {
		b.custom = make(map[string]ldvalue.Value, len(from.custom))
		for k, v := range from.custom {
			b.custom[k] = v
		}
	}
	if len(from.privateAttributeNames) > 0 {
		b.privateAttrs = make(map[string]bool, len(from.privateAttributeNames))
		for _, name := range from.privateAttributeNames {
			b.privateAttrs[name] = true
		}
	}
	return b
}

func (b *userBuilder) canMakeAttributePrivate(attrName string) UserBuilderCanMakeAttributePrivate {
	return &attributeScopedBuilder{builder: b, attrName: attrName}
}

func (b *userBuilder) Key(value string) UserBuilder { b.key = value; return b }

func (b *userBuilder) Secondary(value string) UserBuilderCanMakeAttributePrivate {
	b.secondary = &value
	return b.canMakeAttributePrivate("secondary")
}

func (b *userBuilder) IP(value string) UserBuilderCanMakeAttributePrivate {
	b.ip = &value
	return b.canMakeAttributePrivate("ip")
}

func (b *userBuilder) Country(value string) UserBuilderCanMakeAttributePrivate {
	b.country = &value
	return b.canMakeAttributePrivate("country")
}

func (b *userBuilder) Email(value string) UserBuilderCanMakeAttributePrivate {
	b.email = &value
	return b.canMakeAttributePrivate("email")
}

func (b *userBuilder) FirstName(value string) UserBuilderCanMakeAttributePrivate {
	b.firstName = &value
	return b.canMakeAttributePrivate("firstName")
}

func (b *userBuilder) LastName(value string) UserBuilderCanMakeAttributePrivate {
	b.lastName = &value
	return b.canMakeAttributePrivate("lastName")
}

func (b *userBuilder) Avatar(value string) UserBuilderCanMakeAttributePrivate {
	b.avatar = &value
	return b.canMakeAttributePrivate("avatar")
}

func (b *userBuilder) Name(value string) UserBuilderCanMakeAttributePrivate {
	b.name = &value
	return b.canMakeAttributePrivate("name")
}

func (b *userBuilder) Anonymous(value bool) UserBuilder {
	b.anonymous = &value
	return b
}

func (b *userBuilder) Custom(name string, value ldvalue.Value) UserBuilderCanMakeAttributePrivate {
	if b.custom == nil {
		b.custom = make(map[string]ldvalue.Value)
	}
	b.custom[name] = value
	return b.canMakeAttributePrivate(name)
}

// Build creates a User from the current builder state. The User is independent of the builder
// afterward; further calls on the builder do not affect it.
func (b *userBuilder) Build() User {
	u := User{
		key:       b.key,
		secondary: b.secondary,
		ip:        b.ip,
		country:   b.country,
		email:     b.email,
		firstName: b.firstName,
		lastName:  b.lastName,
		avatar:    b.avatar,
		name:      b.name,
		anonymous: b.anonymous,
	}
	if len(b.custom) > 0 {
		c := make(map[string]ldvalue.Value, len(b.custom))
		for k, v := range b.custom {
			c[k] = v
		}
		u.custom = c
	}
	if len(b.privateAttrs) > 0 {
		names := make([]string, 0, len(b.privateAttrs))
		for name, on := range b.privateAttrs {
			if on {
				names = append(names, name)
			}
		}
		u.privateAttributeNames = names
	}
	return u
}

// AsPrivateAttribute marks the attribute just set as private: its value is omitted from analytics
// events. Key and Anonymous cannot be made private; the compiler enforces this because only the
// setters for attributes that can be private return UserBuilderCanMakeAttributePrivate.
func (b *attributeScopedBuilder) AsPrivateAttribute() UserBuilder {
	if b.builder.privateAttrs == nil {
		b.builder.privateAttrs = make(map[string]bool)
	}
	b.builder.privateAttrs[b.attrName] = true
	return b.builder
}

func (b *attributeScopedBuilder) Key(value string) UserBuilder { return b.builder.Key(value) }

func (b *attributeScopedBuilder) Secondary(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.Secondary(value)
}

func (b *attributeScopedBuilder) IP(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.IP(value)
}

func (b *attributeScopedBuilder) Country(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.Country(value)
}

func (b *attributeScopedBuilder) Email(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.Email(value)
}

func (b *attributeScopedBuilder) FirstName(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.FirstName(value)
}

func (b *attributeScopedBuilder) LastName(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.LastName(value)
}

func (b *attributeScopedBuilder) Avatar(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.Avatar(value)
}

func (b *attributeScopedBuilder) Name(value string) UserBuilderCanMakeAttributePrivate {
	return b.builder.Name(value)
}

func (b *attributeScopedBuilder) Anonymous(value bool) UserBuilder {
	return b.builder.Anonymous(value)
}

func (b *attributeScopedBuilder) Custom(name string, value ldvalue.Value) UserBuilderCanMakeAttributePrivate {
	return b.builder.Custom(name, value)
}

func (b *attributeScopedBuilder) Build() User { return b.builder.Build() }

package users

import (
	"github.com/google/uuid"

	"github.com/michaelsproul/website/internal/store"
)

// Collection is the name of the backing collection for user records.
const Collection = "users"

// User is an identity record. PasswordHash is never serialized into a
// response and gets scrubbed before a record crosses a trust boundary.
type User struct {
	UUID         uuid.UUID `json:"uuid"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Admin        bool      `json:"admin"`
}

// Scrubbed returns a copy with the password hash erased.
func (u User) Scrubbed() User {
	u.PasswordHash = ""
	return u
}

var _ store.Codec[User] = Codec{}

// Codec maps users onto their document form:
// uuid, name, password_hash, admin.
type Codec struct{}

func (Codec) Encode(u User) store.Document {
	return store.Document{
		"uuid":          u.UUID.String(),
		"name":          u.Name,
		"password_hash": u.PasswordHash,
		"admin":         u.Admin,
	}
}

func (Codec) Decode(doc store.Document) (User, error) {
	rawUUID, err := doc.Str("uuid")
	if err != nil {
		return User{}, err
	}
	id, err := uuid.Parse(rawUUID)
	if err != nil {
		return User{}, &store.FieldError{Field: "uuid", Reason: "is not a valid UUID"}
	}

	name, err := doc.Str("name")
	if err != nil {
		return User{}, err
	}
	passwordHash, err := doc.Str("password_hash")
	if err != nil {
		return User{}, err
	}
	admin, err := doc.Bool("admin")
	if err != nil {
		return User{}, err
	}

	return User{
		UUID:         id,
		Name:         name,
		PasswordHash: passwordHash,
		Admin:        admin,
	}, nil
}

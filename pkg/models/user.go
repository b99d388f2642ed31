package models

// User roles. There is no hierarchy beyond these two: admin manages all
// leads, sales sees only leads assigned to them.
const (
	RoleAdmin = "admin"
	RoleSales = "sales"
)

// User is a panel account, looked up by email.
type User struct {
	Email        string `json:"email" dynamodbav:"email"`
	Name         string `json:"name" dynamodbav:"name"`
	Role         string `json:"role" dynamodbav:"role"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
}

// UserInfo is the public shape of a user in API responses.
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Info strips credentials for API responses.
func (u *User) Info() UserInfo {
	return UserInfo{Email: u.Email, Name: u.Name, Role: u.Role}
}

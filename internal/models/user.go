package models

// User is a SkillSpace account. The password never leaves the server:
// it is excluded from JSON marshalling and only compared during login.
type User struct {
	ID          int     `json:"id"`
	Username    string  `json:"username"`
	Password    string  `json:"-"`
	Name        *string `json:"name"`
	Avatar      *string `json:"avatar"`
	Bio         *string `json:"bio"`
	Rating      int     `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

// InsertUser is the payload for creating a user.
type InsertUser struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
}

// UpdateUser is a partial profile update; nil fields are left unchanged.
type UpdateUser struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Bio    *string `json:"bio"`
}
